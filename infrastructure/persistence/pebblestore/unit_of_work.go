package pebblestore

import (
	"context"
	"fmt"

	"orderhub/domain/shared"
	"orderhub/infrastructure/persistence/retry"
	"orderhub/pkg/logger"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

// UnitOfWork collects the writes of fn in one indexed batch and commits it
// atomically. Batches are serialized by the store, so a version check inside
// fn cannot race with another unit of work.
type UnitOfWork struct {
	store       *Store
	publisher   shared.EventPublisher
	retryConfig retry.Config
	aggregates  []shared.AggregateRoot
}

func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	executeOnce := func(ctx context.Context) error {
		u.aggregates = u.aggregates[:0]

		u.store.mu.Lock()
		defer u.store.mu.Unlock()

		b := u.store.db.NewIndexedBatch()
		defer b.Close()

		if err := fn(contextWithBatch(ctx, b)); err != nil {
			return err
		}
		if err := b.Commit(pebble.Sync); err != nil {
			return fmt.Errorf("failed to commit batch: %w", err)
		}
		return nil
	}

	if err := retry.ExecuteWithRetry(ctx, u.retryConfig, executeOnce); err != nil {
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
	store       *Store
	publisher   shared.EventPublisher
	retryConfig retry.Config
}

func NewUnitOfWorkFactory(store *Store, publisher shared.EventPublisher, retryConfig retry.Config) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store, publisher: publisher, retryConfig: retryConfig}
}

func (f *UnitOfWorkFactory) New() shared.UnitOfWork {
	return &UnitOfWork{store: f.store, publisher: f.publisher, retryConfig: f.retryConfig}
}

var (
	_ shared.UnitOfWork        = (*UnitOfWork)(nil)
	_ shared.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
)
