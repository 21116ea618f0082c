/*
Package shared holds the building blocks every subdomain uses: sentinel
errors, stack-carrying domain errors, aggregate and event contracts,
specifications and the unit of work port.

Domain errors capture the call stack when they are created and format it
only when a log line asks for it. They never carry transport concepts such
as HTTP status codes.
*/
package shared

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ============================================================================
// Sentinel errors, matched with errors.Is
// ============================================================================

var (
	ErrNotFound = errors.New("not found")

	// ErrConflict covers unique-constraint and concurrent-modification conflicts.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput is returned when a request fails validation before any write.
	ErrInvalidInput = errors.New("invalid input")

	ErrForbidden = errors.New("forbidden")
)

// ============================================================================
// DomainError
// ============================================================================

// DomainError carries business context plus the stack at the point of creation.
type DomainError struct {
	Err     error
	Entity  string
	Message string
	Field   string

	stack []uintptr
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Stack formats the captured frames lazily.
func (e *DomainError) Stack() []string {
	return FormatStack(e.stack)
}

// CaptureStack records the current call stack.
// skip is usually 3: runtime.Callers, CaptureStack and the NewXxxError constructor.
func CaptureStack(skip int) []uintptr {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	return pcs[:n]
}

// FormatStack renders at most ten non-runtime frames as "file:line function".
func FormatStack(stack []uintptr) []string {
	if len(stack) == 0 {
		return nil
	}

	frames := runtime.CallersFrames(stack)
	var result []string
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			result = append(result, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more || len(result) >= 10 {
			break
		}
	}
	return result
}

func NewNotFoundError(entity string) error {
	return &DomainError{
		Err:     ErrNotFound,
		Entity:  entity,
		Message: entity + " not found",
		stack:   CaptureStack(3),
	}
}

func NewConflictError(entity, message string) error {
	return &DomainError{
		Err:     ErrConflict,
		Entity:  entity,
		Message: message,
		stack:   CaptureStack(3),
	}
}

// NewValidationError reports a rejected field. The result matches ErrInvalidInput.
func NewValidationError(entity, field, reason string) error {
	return &DomainError{
		Err:     ErrInvalidInput,
		Entity:  entity,
		Field:   field,
		Message: reason,
		stack:   CaptureStack(3),
	}
}

func NewForbiddenError(entity, reason string) error {
	return &DomainError{
		Err:     ErrForbidden,
		Entity:  entity,
		Message: reason,
		stack:   CaptureStack(3),
	}
}

// Stacker is implemented by errors that can report where they were created.
// The API layer uses it to log stacks for 5xx responses.
type Stacker interface {
	Stack() []string
}
