package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the wizard, assembler, queue and persistence layers
var (
	// ErrInvalidConfiguration marks programmer errors detected at construction time
	ErrInvalidConfiguration = errors.New("invalid configuration")

	ErrEmptyBatch           = errors.New("no record has data")
	ErrMissingRequiredField = errors.New("required field missing")
	ErrNotNumeric           = errors.New("value is not numeric")
	ErrInvalidOption        = errors.New("value is not an allowed option")
	ErrInvalidValue         = errors.New("invalid value")

	ErrNotFound         = errors.New("not found")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrWrongStep        = errors.New("operation not allowed at current step")
	ErrUnknownField     = errors.New("unknown field")
	ErrKindMismatch     = errors.New("update does not match field kind")
	ErrIndexOutOfRange  = errors.New("record index out of range")
)

// ValidationError is a user-correctable input problem.
// Fields names the offending inputs using their canonical keys.
type ValidationError struct {
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError for the given fields
func NewValidationError(err error, fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Err: err}
}

// PersistenceError wraps a failure reported by the document store.
// The caller is expected to keep all in-progress state so the operation can be retried.
type PersistenceError struct {
	Op         string // create, update, list, get
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPersistence reports whether err carries a PersistenceError
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
