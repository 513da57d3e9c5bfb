package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the goal engine. Callers classify with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrNotFound         = errors.New("goal not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Validation failures. Each one wraps ErrValidation.
var (
	ErrEmptyName        = fmt.Errorf("%w: empty name", ErrValidation)
	ErrNameTooLong      = fmt.Errorf("%w: name too long (max %d characters)", ErrValidation, MaxNameLength)
	ErrInvalidTarget    = fmt.Errorf("%w: target amount must be positive", ErrValidation)
	ErrNegativeCurrent  = fmt.Errorf("%w: current amount cannot be negative", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrAmountTooLarge   = fmt.Errorf("%w: amount exceeds 999,999,999,999.99", ErrValidation)
	ErrAmountPrecision  = fmt.Errorf("%w: amount has more than two decimal places", ErrValidation)
	ErrInvalidDeadline  = fmt.Errorf("%w: invalid deadline", ErrValidation)
	ErrInvalidID        = fmt.Errorf("%w: empty goal id", ErrValidation)
	ErrNoEdits          = fmt.Errorf("%w: no changes requested", ErrValidation)
	ErrNonPositiveFunds = fmt.Errorf("%w: contribution must be positive", ErrValidation)
)

// Kind values, shared with the log error_type field.
const (
	KindValidation       = "validation_error"
	KindUnauthenticated  = "auth_error"
	KindNotFound         = "not_found_error"
	KindStoreUnavailable = "database_error"
	KindInternal         = "internal_error"
)

// ErrorKind maps err onto the engine's error taxonomy.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	default:
		return KindInternal
	}
}
