// Package apperrors defines the error taxonomy shared across the query pipeline.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Every error surfaced to a caller
// carries exactly one Kind; handlers map kinds onto HTTP status codes.
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindAuthorization     Kind = "authorization_error"
	KindCacheUnavailable  Kind = "cache_unavailable"
	KindSchemaDiscovery   Kind = "schema_discovery_error"
	KindGeneration        Kind = "generation_error"
	KindUnsafeStatement   Kind = "unsafe_statement_error"
	KindExecution         Kind = "execution_error"
	KindExecutionTimeout  Kind = "execution_timeout"
	KindRowCapExceeded    Kind = "row_cap_exceeded"
	KindResourceExhausted Kind = "resource_exhausted"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Error is a classified pipeline error. Message is safe to show to callers;
// Err holds the underlying cause for logs and errors.Is/As chains.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a classified error wrapping an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain. Returns an empty Kind and
// false if no *Error is present in the chain.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
