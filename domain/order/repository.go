package order

import (
	"context"
	"time"
)

// Repository Order repository interface
// All methods use the transaction carried by ctx when called inside a unit of work.
type Repository interface {
	// Insert stores a new order, assigns its id via AssignID.
	// Returns ErrDuplicateNumber when the number is taken.
	Insert(ctx context.Context, o *Order) error

	GetByID(ctx context.Context, id int64) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)

	// Update writes status, pay status, checkout and cancel fields in one statement,
	// guarded by the version the order was read at. A stale version yields
	// ErrConcurrentModification.
	Update(ctx context.Context, o *Order) error

	FindByStatusAndCreatedBefore(ctx context.Context, status Status, cutoff time.Time) ([]*Order, error)
}

// ItemRepository Order line persistence
type ItemRepository interface {
	InsertBatch(ctx context.Context, items []Item) error
	GetByOrderID(ctx context.Context, orderID int64) ([]Item, error)
}
