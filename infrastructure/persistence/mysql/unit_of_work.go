package mysql

import (
	"context"
	"fmt"

	"orderhub/domain/shared"
	"orderhub/infrastructure/persistence"
	"orderhub/infrastructure/persistence/retry"
	"orderhub/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UnitOfWork implements shared.UnitOfWork with a GORM transaction.
// Repositories pick the transaction up from the context passed to fn.
type UnitOfWork struct {
	db          *gorm.DB
	publisher   shared.EventPublisher
	retryConfig retry.Config
	aggregates  []shared.AggregateRoot
}

func NewUnitOfWork(db *gorm.DB, publisher shared.EventPublisher, retryConfig retry.Config) *UnitOfWork {
	return &UnitOfWork{db: db, publisher: publisher, retryConfig: retryConfig}
}

// Execute runs fn in a transaction, retrying retryable failures with a fresh
// transaction each time. Events of registered aggregates are published after
// commit; a publish failure is logged and does not undo the commit.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	executeOnce := func(ctx context.Context) error {
		u.aggregates = u.aggregates[:0]

		tx := u.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("failed to begin transaction: %w", tx.Error)
		}

		if err := fn(persistence.ContextWithTx(ctx, tx)); err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit().Error; err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	}

	if err := retry.ExecuteWithRetry(ctx, u.retryConfig, executeOnce); err != nil {
		return err
	}

	publishCollected(ctx, u.publisher, u.aggregates)
	return nil
}

func (u *UnitOfWork) RegisterNew(aggregate shared.AggregateRoot) {
	u.aggregates = append(u.aggregates, aggregate)
}

func (u *UnitOfWork) RegisterDirty(aggregate shared.AggregateRoot) {
	u.aggregates = append(u.aggregates, aggregate)
}

func publishCollected(ctx context.Context, publisher shared.EventPublisher, aggregates []shared.AggregateRoot) {
	for _, agg := range aggregates {
		events := agg.PullEvents()
		if publisher == nil || len(events) == 0 {
			continue
		}
		if err := publisher.Publish(ctx, events...); err != nil {
			logger.FromContext(ctx).Warn("failed to publish domain events",
				zap.String("aggregate_id", agg.AggregateID()),
				zap.Error(err))
		}
	}
}

var _ shared.UnitOfWork = (*UnitOfWork)(nil)
