package invoice

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingField is returned when a manual validation request lacks a required field.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidAmount is returned when an amount cannot be parsed as a decimal number.
	ErrInvalidAmount = errors.New("invalid amount")
)

// InputError reports a violation of the input contract of a validation request.
type InputError struct {
	// Fields lists the offending fields in request order.
	Fields []string

	// Err is ErrMissingField or ErrInvalidAmount.
	Err error
}

// Error implements the error interface.
func (e *InputError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, strings.Join(e.Fields, ", "))
}

// Unwrap returns the underlying error for error unwrapping.
func (e *InputError) Unwrap() error {
	return e.Err
}
