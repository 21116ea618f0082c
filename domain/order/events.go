package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderSubmitted = "order.submitted"
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
)

type OrderSubmittedEvent struct {
	number     string
	userID     int64
	amount     decimal.Decimal
	occurredOn time.Time
}

func NewOrderSubmittedEvent(number string, userID int64, amount decimal.Decimal, at time.Time) *OrderSubmittedEvent {
	return &OrderSubmittedEvent{number: number, userID: userID, amount: amount, occurredOn: at}
}

func (e *OrderSubmittedEvent) EventName() string       { return EventOrderSubmitted }
func (e *OrderSubmittedEvent) OccurredOn() time.Time   { return e.occurredOn }
func (e *OrderSubmittedEvent) AggregateID() string     { return e.number }
func (e *OrderSubmittedEvent) UserID() int64           { return e.userID }
func (e *OrderSubmittedEvent) Amount() decimal.Decimal { return e.amount }

type OrderPaidEvent struct {
	number     string
	orderID    int64
	userID     int64
	amount     decimal.Decimal
	occurredOn time.Time
}

func NewOrderPaidEvent(number string, orderID, userID int64, amount decimal.Decimal, at time.Time) *OrderPaidEvent {
	return &OrderPaidEvent{number: number, orderID: orderID, userID: userID, amount: amount, occurredOn: at}
}

func (e *OrderPaidEvent) EventName() string       { return EventOrderPaid }
func (e *OrderPaidEvent) OccurredOn() time.Time   { return e.occurredOn }
func (e *OrderPaidEvent) AggregateID() string     { return e.number }
func (e *OrderPaidEvent) OrderID() int64          { return e.orderID }
func (e *OrderPaidEvent) UserID() int64           { return e.userID }
func (e *OrderPaidEvent) Amount() decimal.Decimal { return e.amount }

type OrderCancelledEvent struct {
	number     string
	orderID    int64
	userID     int64
	reason     string
	occurredOn time.Time
}

func NewOrderCancelledEvent(number string, orderID, userID int64, reason string, at time.Time) *OrderCancelledEvent {
	return &OrderCancelledEvent{number: number, orderID: orderID, userID: userID, reason: reason, occurredOn: at}
}

func (e *OrderCancelledEvent) EventName() string     { return EventOrderCancelled }
func (e *OrderCancelledEvent) OccurredOn() time.Time { return e.occurredOn }
func (e *OrderCancelledEvent) AggregateID() string   { return e.number }
func (e *OrderCancelledEvent) OrderID() int64        { return e.orderID }
func (e *OrderCancelledEvent) UserID() int64         { return e.userID }
func (e *OrderCancelledEvent) Reason() string        { return e.reason }
