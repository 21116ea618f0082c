package order

import (
	"context"
	"time"

	"orderhub/domain/shared"
)

// ByStatusSpecification filters orders by status
type ByStatusSpecification struct {
	Status Status
}

func (spec ByStatusSpecification) IsSatisfiedBy(_ context.Context, o *Order) bool {
	return o.Status() == spec.Status
}

// CreatedBeforeSpecification matches orders whose order time is strictly before Cutoff.
type CreatedBeforeSpecification struct {
	Cutoff time.Time
}

func (spec CreatedBeforeSpecification) IsSatisfiedBy(_ context.Context, o *Order) bool {
	return o.OrderTime().Before(spec.Cutoff)
}

// ByUserIDSpecification filters orders by owner
type ByUserIDSpecification struct {
	UserID int64
}

func (spec ByUserIDSpecification) IsSatisfiedBy(_ context.Context, o *Order) bool {
	return o.UserID() == spec.UserID
}

// NewStatusCreatedBeforeSpecification is the sweep query: status = s AND order_time < cutoff.
func NewStatusCreatedBeforeSpecification(status Status, cutoff time.Time) shared.Specification[*Order] {
	return shared.And[*Order](ByStatusSpecification{Status: status}, CreatedBeforeSpecification{Cutoff: cutoff})
}
