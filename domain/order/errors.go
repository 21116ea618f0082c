package order

import (
	"errors"
	"fmt"

	"orderhub/domain/shared"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrAlreadyPaid is returned for a payment request or transition on a paid order.
	ErrAlreadyPaid = errors.New("order already paid")

	ErrInvalidOrderState = errors.New("invalid order state transition")

	// ErrConcurrentModification means the stored version moved on; reload and retry.
	ErrConcurrentModification = errors.New("order was modified by another transaction, please retry")

	// ErrDuplicateNumber is returned by Insert when the order number is already taken.
	ErrDuplicateNumber = errors.New("duplicate order number")

	ErrEmptyOrderItems = errors.New("order must have at least one item")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// ============================================================================
// Constructors, each captures the caller's stack
// ============================================================================

func NewOrderNotFoundError(key string) error {
	return &orderDomainError{
		sentinel: ErrOrderNotFound,
		message:  "order not found: " + key,
		stack:    shared.CaptureStack(3),
	}
}

func NewAlreadyPaidError(number string) error {
	return &orderDomainError{
		sentinel: ErrAlreadyPaid,
		message:  "order " + number + " already paid",
		stack:    shared.CaptureStack(3),
	}
}

func NewInvalidOrderStateError(number, currentState, targetState string) error {
	return &orderDomainError{
		sentinel: ErrInvalidOrderState,
		message:  fmt.Sprintf("order %s cannot transition from %s to %s", number, currentState, targetState),
		stack:    shared.CaptureStack(3),
	}
}

func NewConcurrentModificationError(key string) error {
	return &orderDomainError{
		sentinel: ErrConcurrentModification,
		message:  "order " + key + " was modified by another transaction, please retry",
		stack:    shared.CaptureStack(3),
	}
}

func NewDuplicateNumberError(number string) error {
	return &orderDomainError{
		sentinel: ErrDuplicateNumber,
		field:    "number",
		message:  "duplicate order number " + number,
		stack:    shared.CaptureStack(3),
	}
}

// NewEmptyOrderItemsError matches both ErrEmptyOrderItems and shared.ErrInvalidInput.
func NewEmptyOrderItemsError() error {
	return &orderDomainError{
		sentinel: ErrEmptyOrderItems,
		field:    "items",
		message:  "order must have at least one item",
		invalid:  true,
		stack:    shared.CaptureStack(3),
	}
}

func NewInvalidQuantityError(name string, quantity int) error {
	return &orderDomainError{
		sentinel: ErrInvalidQuantity,
		field:    "quantity",
		message:  fmt.Sprintf("item %q has invalid quantity %d", name, quantity),
		invalid:  true,
		stack:    shared.CaptureStack(3),
	}
}

type orderDomainError struct {
	sentinel error
	field    string
	message  string
	invalid  bool // also a validation failure
	stack    []uintptr
}

func (e *orderDomainError) Error() string {
	return e.message
}

func (e *orderDomainError) Unwrap() error {
	return e.sentinel
}

func (e *orderDomainError) Is(target error) bool {
	return e.invalid && target == shared.ErrInvalidInput
}

func (e *orderDomainError) Stack() []string {
	return shared.FormatStack(e.stack)
}
