package pricing

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every ReferenceError.
var ErrNotFound = errors.New("not found")

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ReferenceError reports an ID that the catalog does not know.
type ReferenceError struct {
	Kind string
	ID   string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *ReferenceError) Unwrap() error {
	return ErrNotFound
}

func NotFound(kind, id string) error {
	return &ReferenceError{Kind: kind, ID: id}
}

// RejectionError carries a business-rule decision that blocked the quote.
type RejectionError struct {
	Decision Decision
}

func (e *RejectionError) Error() string {
	return e.Decision.Message()
}

func reject(d Decision) error {
	return &RejectionError{Decision: d}
}
