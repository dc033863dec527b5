package invoice

import (
	"errors"
	"fmt"
)

// Validation error kinds. Every *ValidationError unwraps to exactly one of
// these, so callers can branch with errors.Is.
var (
	ErrMissingField    = errors.New("missing field")
	ErrInvalidFormat   = errors.New("invalid format")
	ErrInvalidRange    = errors.New("invalid range")
	ErrEmptyCollection = errors.New("empty collection")
)

// ValidationError identifies the offending field and the reason it was
// rejected.
type ValidationError struct {
	// Kind is one of the Err* sentinels above.
	Kind error

	// Field is the name of the field that failed validation.
	Field string

	// Value is the rejected value as it was received, for diagnostics.
	Value string

	// Message is a human-readable reason.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s (value: %q)", e.Field, e.Message, e.Value)
}

// Unwrap exposes the kind for errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// NewValidationError builds a *ValidationError. value is formatted with %v
// unless it is nil.
func NewValidationError(kind error, field string, value any, message string) *ValidationError {
	var v string
	if value != nil {
		v = fmt.Sprint(value)
	}
	return &ValidationError{Kind: kind, Field: field, Value: v, Message: message}
}

// MissingField reports an absent or blank required field.
func MissingField(field string) *ValidationError {
	return NewValidationError(ErrMissingField, field, nil, "missing required field")
}
