package validate

import (
	"errors"
	"fmt"
)

// Validation error kinds. Every error returned by this package, or by the
// model schemas built on top of it, matches exactly one of these with errors.Is.
var (
	ErrFormat       = errors.New("invalid format")
	ErrDateFormat   = errors.New("invalid date format")
	ErrRange        = errors.New("value out of range")
	ErrRequired     = errors.New("field is required")
	ErrUnknownField = errors.New("unknown field")
)

// FieldError ties a validation failure to the payload field that caused it.
type FieldError struct {
	Field string
	Err   error
}

// NewFieldError wraps err for field.
func NewFieldError(field string, err error) *FieldError {
	return &FieldError{Field: field, Err: err}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Kind returns the sentinel the error belongs to, or nil when err is not a
// validation error.
func Kind(err error) error {
	for _, kind := range []error{ErrFormat, ErrDateFormat, ErrRange, ErrRequired, ErrUnknownField} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsValidation reports whether err is any validation error kind.
func IsValidation(err error) bool {
	return Kind(err) != nil
}
