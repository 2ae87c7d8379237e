package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound           = errors.New("resource not found")
	ErrSubmissionNotFound = fmt.Errorf("%w: submission", ErrNotFound)
	ErrVariableNotFound   = fmt.Errorf("%w: variable", ErrNotFound)

	// Validation errors
	ErrValidation = errors.New("validation failed")

	// Compute errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrLengthMismatch   = errors.New("paired sequences differ in length")
	ErrUnknownJobKind   = errors.New("unknown job kind")
	ErrMalformedResult  = errors.New("malformed compute result")

	// State machine errors
	ErrIllegalTransition = errors.New("illegal state transition")
)

// NewNotFoundError wraps ErrNotFound with resource context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewValidationError reports a rejected submission field
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w for %s: %s", ErrValidation, field, reason)
}

// NewLengthMismatchError reports two paired sequences of unequal length
func NewLengthMismatchError(left, right int) error {
	return fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, left, right)
}

// IsNotFoundError checks whether err is a not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks whether err rejected a submission
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsComputeError checks whether err originates in a compute job
func IsComputeError(err error) bool {
	return errors.Is(err, ErrLengthMismatch) ||
		errors.Is(err, ErrUnknownJobKind) ||
		errors.Is(err, ErrMalformedResult)
}
