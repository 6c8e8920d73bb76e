package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for field validation. FieldError and RowError wrap them so
// callers can classify failures with errors.Is.
var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrOutOfRange           = errors.New("value out of range")
	ErrMalformedTimestamp   = errors.New("malformed timestamp")
	ErrMalformedNumber      = errors.New("malformed number")
	ErrMalformedPreamble    = errors.New("malformed metadata preamble")
	ErrMalformedRow         = errors.New("malformed row")
)

// ErrorKind classifies a row-level decode failure.
type ErrorKind string

const (
	KindMissingRequiredField ErrorKind = "missing_required_field"
	KindOutOfRange           ErrorKind = "out_of_range_value"
	KindMalformedTimestamp   ErrorKind = "malformed_timestamp"
	KindMalformedNumber      ErrorKind = "malformed_number"
	KindMalformedPreamble    ErrorKind = "malformed_metadata_preamble"
	KindMalformedRow         ErrorKind = "malformed_row"
)

// KindOf maps a validation error to its ErrorKind.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrMissingRequiredField):
		return KindMissingRequiredField
	case errors.Is(err, ErrOutOfRange):
		return KindOutOfRange
	case errors.Is(err, ErrMalformedTimestamp):
		return KindMalformedTimestamp
	case errors.Is(err, ErrMalformedPreamble):
		return KindMalformedPreamble
	case errors.Is(err, ErrMalformedRow):
		return KindMalformedRow
	default:
		return KindMalformedNumber
	}
}

// FieldError reports a required field that failed validation.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v: %q", e.Field, e.Err, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Err }

// RowError locates a rejected row in the source text. Line is 1-based and
// counts every physical line of the original file, headers included.
type RowError struct {
	Line    int       `json:"line"`
	Field   string    `json:"field,omitempty"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// NewRowError builds a RowError from a validation error.
func NewRowError(line int, err error) RowError {
	re := RowError{Line: line, Kind: KindOf(err), Message: err.Error()}
	var fe *FieldError
	if errors.As(err, &fe) {
		re.Field = fe.Field
	}
	return re
}
