package shared

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type DomainEvent interface {
	EventName() string
	OccurredOn() time.Time
	AggregateID() string
}

type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	Name() string
}

// EventPublisher receives the events a unit of work collected, after commit.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

func ValidateEvent(event DomainEvent) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	if event.EventName() == "" {
		return errors.New("event name cannot be empty")
	}
	if event.AggregateID() == "" {
		return errors.New("aggregate ID cannot be empty")
	}
	if event.OccurredOn().IsZero() {
		return errors.New("occurred on time cannot be zero")
	}
	return nil
}

// EventBus is a synchronous in-process publisher. Handlers run in
// subscription order; a failing handler does not stop the others.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
}

func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[string][]EventHandler)}
}

// Subscribe registers handler for eventName. "*" subscribes to every event.
func (bus *EventBus) Subscribe(eventName string, handler EventHandler) error {
	if eventName == "" {
		return errors.New("event name cannot be empty")
	}
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	for _, h := range bus.handlers[eventName] {
		if h.Name() == handler.Name() {
			return fmt.Errorf("handler %s already subscribed to %s", handler.Name(), eventName)
		}
	}
	bus.handlers[eventName] = append(bus.handlers[eventName], handler)
	return nil
}

func (bus *EventBus) Publish(ctx context.Context, events ...DomainEvent) error {
	var errs []error
	for _, event := range events {
		if err := ValidateEvent(event); err != nil {
			errs = append(errs, err)
			continue
		}

		bus.mu.RLock()
		handlers := make([]EventHandler, 0, len(bus.handlers[event.EventName()])+len(bus.handlers["*"]))
		handlers = append(handlers, bus.handlers[event.EventName()]...)
		handlers = append(handlers, bus.handlers["*"]...)
		bus.mu.RUnlock()

		for _, handler := range handlers {
			if err := handler.Handle(ctx, event); err != nil {
				errs = append(errs, fmt.Errorf("event %s handler %s: %w", event.EventName(), handler.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// FuncHandler adapts a function to EventHandler.
type FuncHandler struct {
	name string
	fn   func(context.Context, DomainEvent) error
}

func NewFuncHandler(name string, fn func(context.Context, DomainEvent) error) *FuncHandler {
	return &FuncHandler{name: name, fn: fn}
}

func (h *FuncHandler) Handle(ctx context.Context, event DomainEvent) error {
	return h.fn(ctx, event)
}

func (h *FuncHandler) Name() string {
	return h.name
}

var _ EventPublisher = (*EventBus)(nil)
