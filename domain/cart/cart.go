// Package cart holds the shopping cart lines a user turns into an order.
package cart

import (
	"context"

	"orderhub/domain/shared"

	"github.com/shopspring/decimal"
)

// Item is one cart line. Exactly one of DishID and SetmealID is usually set.
type Item struct {
	ID        int64
	UserID    int64
	Name      string
	Image     string
	DishID    int64
	SetmealID int64
	Flavor    string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (i Item) Validate() error {
	if i.UserID <= 0 {
		return shared.NewValidationError("cart", "user_id", "user id must be positive")
	}
	if i.Name == "" {
		return shared.NewValidationError("cart", "name", "item name is required")
	}
	if i.Quantity <= 0 {
		return shared.NewValidationError("cart", "quantity", "quantity must be positive")
	}
	if i.UnitPrice.IsNegative() {
		return shared.NewValidationError("cart", "unit_price", "unit price must not be negative")
	}
	return nil
}

// Repository Cart persistence
type Repository interface {
	ListByUserID(ctx context.Context, userID int64) ([]Item, error)
	DeleteByUserID(ctx context.Context, userID int64) error
	// Add stores a new line and returns it with its id set.
	Add(ctx context.Context, item Item) (Item, error)
}
