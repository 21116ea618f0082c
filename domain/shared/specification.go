package shared

import "context"

// Specification expresses a business filter over T.
// In-memory stores evaluate IsSatisfiedBy; SQL stores translate known specs into WHERE clauses.
type Specification[T any] interface {
	IsSatisfiedBy(ctx context.Context, entity T) bool
}

// AndSpecification is satisfied when both sides are.
type AndSpecification[T any] struct {
	Left  Specification[T]
	Right Specification[T]
}

func (spec AndSpecification[T]) IsSatisfiedBy(ctx context.Context, entity T) bool {
	return spec.Left.IsSatisfiedBy(ctx, entity) && spec.Right.IsSatisfiedBy(ctx, entity)
}

func And[T any](left, right Specification[T]) Specification[T] {
	return AndSpecification[T]{Left: left, Right: right}
}

// NotSpecification negates Spec.
type NotSpecification[T any] struct {
	Spec Specification[T]
}

func (spec NotSpecification[T]) IsSatisfiedBy(ctx context.Context, entity T) bool {
	return !spec.Spec.IsSatisfiedBy(ctx, entity)
}

func Not[T any](inner Specification[T]) Specification[T] {
	return NotSpecification[T]{Spec: inner}
}

// Filter returns the entities satisfying spec, preserving order.
func Filter[T any](ctx context.Context, spec Specification[T], entities []T) []T {
	var out []T
	for _, e := range entities {
		if spec.IsSatisfiedBy(ctx, e) {
			out = append(out, e)
		}
	}
	return out
}
