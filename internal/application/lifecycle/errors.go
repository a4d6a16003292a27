package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidationFailed   = errors.New("validation failed")
	ErrFetchFailed        = errors.New("fetch failed")
	ErrSubmitFailed       = errors.New("submit failed")
	ErrPersistFailed      = errors.New("persist failed")
	ErrTransitionRejected = errors.New("transition rejected")
	ErrInvalidState       = errors.New("invalid state")
	ErrConflict           = errors.New("order was decided concurrently")
)

// FieldError names one field that failed validation and the rule it broke
type FieldError struct {
	Field string
	Rule  string
}

// ValidationError lists every invalid field of a request
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(names, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// Has reports whether field is among the invalid ones
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// FetchError is a failed read from the catalog. It is safe to retry.
type FetchError struct {
	ID      string
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %s", ErrFetchFailed, e.Message)
	}
	return fmt.Sprintf("%s: order %s: %s", ErrFetchFailed, e.ID, e.Message)
}

func (e *FetchError) Unwrap() []error {
	return causes(ErrFetchFailed, e.Err)
}

// WriteError is a failed submit or decision write
type WriteError struct {
	Kind    error
	Message string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *WriteError) Unwrap() []error {
	return causes(e.Kind, e.Err)
}

func causes(kind, err error) []error {
	if err == nil {
		return []error{kind}
	}
	return []error{kind, err}
}
