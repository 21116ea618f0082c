package user

import (
	"strings"
	"time"

	"orderhub/domain/shared"
)

// User is a customer account. OpenID is the payer identity handed to the
// payment provider.
type User struct {
	id        int64
	openID    string
	name      string
	phone     string
	createdAt time.Time
}

// NewUser validates and creates a user. id may be zero when storage assigns it.
func NewUser(id int64, openID, name, phone string) (*User, error) {
	openID = strings.TrimSpace(openID)
	if openID == "" {
		return nil, shared.NewValidationError("user", "open_id", "open id is required")
	}
	return &User{
		id:        id,
		openID:    openID,
		name:      strings.TrimSpace(name),
		phone:     strings.TrimSpace(phone),
		createdAt: time.Now(),
	}, nil
}

type ReconstructionDTO struct {
	ID        int64
	OpenID    string
	Name      string
	Phone     string
	CreatedAt time.Time
}

func RebuildFromDTO(dto ReconstructionDTO) *User {
	return &User{
		id:        dto.ID,
		openID:    dto.OpenID,
		name:      dto.Name,
		phone:     dto.Phone,
		createdAt: dto.CreatedAt,
	}
}

func (u *User) ToDTO() ReconstructionDTO {
	return ReconstructionDTO{ID: u.id, OpenID: u.openID, Name: u.name, Phone: u.phone, CreatedAt: u.createdAt}
}

// AssignID is used by repositories after insert.
func (u *User) AssignID(id int64) { u.id = id }

func (u *User) ID() int64            { return u.id }
func (u *User) OpenID() string       { return u.openID }
func (u *User) Name() string         { return u.name }
func (u *User) Phone() string        { return u.phone }
func (u *User) CreatedAt() time.Time { return u.createdAt }
