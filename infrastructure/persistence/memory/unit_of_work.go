package memory

import (
	"context"

	"orderhub/domain/shared"
	"orderhub/infrastructure/persistence/retry"
	"orderhub/pkg/logger"

	"go.uber.org/zap"
)

// UnitOfWork runs fn directly; there is no rollback for in-memory writes.
// It still retries retryable errors and publishes collected events on success.
type UnitOfWork struct {
	publisher   shared.EventPublisher
	retryConfig retry.Config
	aggregates  []shared.AggregateRoot
}

func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	err := retry.ExecuteWithRetry(ctx, u.retryConfig, func(ctx context.Context) error {
		u.aggregates = u.aggregates[:0]
		return fn(ctx)
	})
	if err != nil {
		return err
	}

	for _, agg := range u.aggregates {
		events := agg.PullEvents()
		if u.publisher == nil || len(events) == 0 {
			continue
		}
		if err := u.publisher.Publish(ctx, events...); err != nil {
			logger.FromContext(ctx).Warn("failed to publish domain events",
				zap.String("aggregate_id", agg.AggregateID()), zap.Error(err))
		}
	}
	return nil
}

func (u *UnitOfWork) RegisterNew(aggregate shared.AggregateRoot) {
	u.aggregates = append(u.aggregates, aggregate)
}

func (u *UnitOfWork) RegisterDirty(aggregate shared.AggregateRoot) {
	u.aggregates = append(u.aggregates, aggregate)
}

type UnitOfWorkFactory struct {
	publisher   shared.EventPublisher
	retryConfig retry.Config
}

func NewUnitOfWorkFactory(publisher shared.EventPublisher, retryConfig retry.Config) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{publisher: publisher, retryConfig: retryConfig}
}

func (f *UnitOfWorkFactory) New() shared.UnitOfWork {
	return &UnitOfWork{publisher: f.publisher, retryConfig: f.retryConfig}
}

var (
	_ shared.UnitOfWork        = (*UnitOfWork)(nil)
	_ shared.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
)
