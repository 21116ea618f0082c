package user

import (
	"strconv"

	"orderhub/domain/shared"
)

// NewUserNotFoundError matches shared.ErrNotFound.
func NewUserNotFoundError(id int64) error {
	return &shared.DomainError{
		Err:     shared.ErrNotFound,
		Entity:  "user",
		Message: "user not found: " + strconv.FormatInt(id, 10),
	}
}
