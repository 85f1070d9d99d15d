package extract

import (
	"errors"
	"fmt"
)

// ErrMissing matches every MissingDataError with errors.Is.
var ErrMissing = errors.New("missing data")

// MissingDataError is returned when an expected OID or column is absent.
type MissingDataError struct {
	What string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("%s: no data", e.What)
}

func (e *MissingDataError) Is(target error) bool {
	return target == ErrMissing
}

// ParseError is returned when a value is present but cannot be converted
// to the expected shape.
type ParseError struct {
	What  string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: cannot parse %q: %v", e.What, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
