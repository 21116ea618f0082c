package specification

import (
	"orderhub/domain/order"
	"orderhub/domain/shared"

	"gorm.io/gorm"
)

// Translator converts domain specifications to GORM scopes
type Translator interface {
	// Translate returns nil for specification types it does not know.
	Translate(spec shared.Specification[*order.Order]) func(*gorm.DB) *gorm.DB
}

// GormTranslator implements Translator for the orders table
type GormTranslator struct{}

func NewGormTranslator() *GormTranslator {
	return &GormTranslator{}
}

// Translate converts an order specification into a scope. Unknown types
// translate to a scope matching nothing, so a missing case never widens a query.
func (t *GormTranslator) Translate(spec shared.Specification[*order.Order]) func(*gorm.DB) *gorm.DB {
	if spec == nil {
		return func(db *gorm.DB) *gorm.DB { return db }
	}

	switch s := spec.(type) {
	case shared.AndSpecification[*order.Order]:
		left, right := t.Translate(s.Left), t.Translate(s.Right)
		return func(db *gorm.DB) *gorm.DB {
			return right(left(db))
		}
	case shared.NotSpecification[*order.Order]:
		if inner, ok := s.Spec.(order.ByStatusSpecification); ok {
			return func(db *gorm.DB) *gorm.DB {
				return db.Where("status <> ?", string(inner.Status))
			}
		}
	case order.ByStatusSpecification:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("status = ?", string(s.Status))
		}
	case order.CreatedBeforeSpecification:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("order_time < ?", s.Cutoff.UTC())
		}
	case order.ByUserIDSpecification:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("user_id = ?", s.UserID)
		}
	}

	return func(db *gorm.DB) *gorm.DB { return db.Where("1 = 0") }
}

var _ Translator = (*GormTranslator)(nil)
