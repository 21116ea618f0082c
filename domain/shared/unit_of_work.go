package shared

import "context"

// UnitOfWork owns a transaction boundary and collects the events of the
// aggregates registered inside it. Events are published only after commit.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
	RegisterNew(aggregate AggregateRoot)
	RegisterDirty(aggregate AggregateRoot)
}

// UnitOfWorkFactory hands out a fresh unit of work per operation.
// A UnitOfWork is not safe for concurrent use.
type UnitOfWorkFactory interface {
	New() UnitOfWork
}
