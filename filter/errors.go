package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrSpec matches every *SpecError.
	ErrSpec = errors.New("filter: invalid condition")
	// ErrConversion matches every *ConversionError.
	ErrConversion = errors.New("filter: value conversion failed")

	ErrMissingField = errors.New("missing field reference")
	ErrUnknownField = errors.New("unknown field")
	ErrUnsupported  = errors.New("operator not supported for field type")
	ErrMalformed    = errors.New("value shape does not match operator")
)

// SpecError reports a condition that violates the caller contract. Err is
// one of ErrMissingField, ErrUnknownField, ErrUnsupported or ErrMalformed.
type SpecError struct {
	Field string
	Op    Operator
	Err   error
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("filter: %s %s: %v", e.Field, e.Op, e.Err)
}

func (e *SpecError) Unwrap() error        { return e.Err }
func (e *SpecError) Is(target error) bool { return target == ErrSpec }

func specErr(field string, op Operator, err error, detail ...any) error {
	if len(detail) > 0 {
		err = fmt.Errorf("%w: %s", err, fmt.Sprint(detail...))
	}
	return &SpecError{Field: field, Op: op, Err: err}
}

// ConversionError reports a raw value that cannot be coerced to the field's
// type.
type ConversionError struct {
	Field  string
	Op     Operator
	Raw    any
	Target string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("filter: %s %s: cannot convert %#v (%T) to %s: %v",
		e.Field, e.Op, e.Raw, e.Raw, e.Target, e.Err)
}

func (e *ConversionError) Unwrap() error        { return e.Err }
func (e *ConversionError) Is(target error) bool { return target == ErrConversion }
