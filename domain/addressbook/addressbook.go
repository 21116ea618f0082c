// Package addressbook holds the delivery addresses a user can order to.
package addressbook

import (
	"context"
	"strconv"
	"strings"

	"orderhub/domain/shared"
)

type Address struct {
	ID        int64
	UserID    int64
	Consignee string
	Phone     string
	Province  string
	City      string
	District  string
	Detail    string
}

// Full joins the region parts and the street detail.
func (a Address) Full() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Province, a.City, a.District, a.Detail} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func (a Address) Validate() error {
	if a.UserID <= 0 {
		return shared.NewValidationError("address_book", "user_id", "user id must be positive")
	}
	if strings.TrimSpace(a.Consignee) == "" {
		return shared.NewValidationError("address_book", "consignee", "consignee is required")
	}
	if strings.TrimSpace(a.Detail) == "" {
		return shared.NewValidationError("address_book", "detail", "address detail is required")
	}
	return nil
}

// NewAddressNotFoundError matches shared.ErrNotFound.
func NewAddressNotFoundError(id int64) error {
	return &shared.DomainError{
		Err:     shared.ErrNotFound,
		Entity:  "address_book",
		Message: "address book entry not found: " + strconv.FormatInt(id, 10),
	}
}

// Repository Address book persistence
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Address, error)
	// Save inserts when ID is zero and returns the stored entry.
	Save(ctx context.Context, a Address) (*Address, error)
}
