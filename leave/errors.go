/*
errors.go - Centralized error types for the lifecycle engine

PURPOSE:
  All error types in one place. Callers branch with errors.Is on the
  sentinels; structured wrappers carry the details an API layer needs
  to render a useful response.

ERROR CATEGORIES:
  1. Client errors   - validation, stale state, insufficient balance
  2. Data defects    - unmapped leave types (MappingError)
  3. Infrastructure  - storage failures, lock timeouts

The distinction matters: a StaleState loser of a race should see
"already handled", not a generic 500, and only infrastructure errors
are worth retrying.

SEE ALSO:
  - engine.go: produces these errors
  - api/handlers.go: maps them to HTTP status codes
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input, before any
	// transaction opens.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a request or employee does not exist
	// (or the actor is not allowed to see it).
	ErrNotFound = errors.New("not found")

	// ErrStaleState is returned when a transition's status precondition
	// does not hold - usually the loser of a race or a duplicate
	// decision. The request was already handled.
	ErrStaleState = errors.New("request already handled")

	// ErrInsufficientBalance is returned when an approval would drive a
	// bucket below zero. The transition is fully rolled back.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidState is returned for operations that are never legal in
	// the request's current status, e.g. deleting an approved request.
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrMapping is returned when a leave-type name has no bucket. This
	// is a configuration-data defect: the transaction aborts rather than
	// silently skipping the balance effect.
	ErrMapping = errors.New("leave type has no balance bucket")

	// ErrTimeout is returned when the storage lock cannot be acquired
	// within the bounded wait. The caller may retry.
	ErrTimeout = errors.New("transition timed out waiting for lock")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientBalanceError reports the shortage the caller needs to
// render "you only have N days".
type InsufficientBalanceError struct {
	EmployeeID string
	Bucket     Bucket
	Requested  decimal.Decimal
	Available  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: requested %s, available %s",
		e.Bucket, e.Requested, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// MappingError identifies the unmapped leave type.
type MappingError struct {
	LeaveTypeName string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("no bucket mapped for leave type %q", e.LeaveTypeName)
}

func (e *MappingError) Unwrap() error { return ErrMapping }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to the caller's input
// or a lost race, not a server fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrStaleState) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidState)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
