package user

import "context"

// Repository User repository interface
type Repository interface {
	// Save inserts the user when ID is zero, otherwise replaces it.
	Save(ctx context.Context, u *User) error

	GetByID(ctx context.Context, id int64) (*User, error)
}
