// Package verrors provides the structured error taxonomy for Vectura.
//
// Every error the core raises is a *Error carrying a Kind from the fixed
// taxonomy in SPEC_FULL.md §7 (InvalidInput, DimensionMismatch,
// DocumentNotFound, LoadFailed, Storage), plus enough context to log or
// present to a caller without re-deriving it from a wrapped string.
package verrors

import "fmt"

// Kind is one of the five error kinds named in the specification.
type Kind string

const (
	// KindInvalidInput covers empty batches, whitespace-only text,
	// mismatched id/text counts, embedder count mismatches, zero-norm or
	// non-finite vectors, malformed options, and internal size assertions.
	KindInvalidInput Kind = "INVALID_INPUT"

	// KindDimensionMismatch is raised whenever a vector's length differs
	// from the database's configured dimension.
	KindDimensionMismatch Kind = "DIMENSION_MISMATCH"

	// KindDocumentNotFound is raised by updateDocument on an absent id.
	KindDocumentNotFound Kind = "DOCUMENT_NOT_FOUND"

	// KindLoadFailed covers storage I/O failures, including the batched
	// candidate loader's "every batch failed" condition.
	KindLoadFailed Kind = "LOAD_FAILED"

	// KindStorage is an opaque wrapper for storage-provider-specific
	// failures that don't fit the other kinds.
	KindStorage Kind = "STORAGE"
)

// Error is Vectura's structured error type.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, enabling errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error with the same Kind.
//
// This lets callers write errors.Is(err, verrors.InvalidInput("")) to test
// for a kind without caring about the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail attaches a key/value pair of additional context and returns
// the error for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// InvalidInput constructs a KindInvalidInput error.
func InvalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// DimensionMismatch constructs a KindDimensionMismatch error carrying the
// expected and actual lengths as details.
func DimensionMismatch(expected, got int) *Error {
	return &Error{
		Kind:    KindDimensionMismatch,
		Message: fmt.Sprintf("dimension mismatch: expected %d, got %d", expected, got),
		Details: map[string]string{
			"expected": fmt.Sprintf("%d", expected),
			"got":      fmt.Sprintf("%d", got),
		},
	}
}

// NotFound constructs a KindDocumentNotFound error for the given id.
func NotFound(id string) *Error {
	return &Error{
		Kind:    KindDocumentNotFound,
		Message: fmt.Sprintf("document not found: %s", id),
		Details: map[string]string{"id": id},
	}
}

// LoadFailed constructs a KindLoadFailed error, optionally wrapping cause.
func LoadFailed(message string, cause error) *Error {
	return &Error{Kind: KindLoadFailed, Message: message, Cause: cause}
}

// Storage constructs a KindStorage error, optionally wrapping cause.
func Storage(message string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: message, Cause: cause}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if ae, ok := err.(*Error); ok {
		e = ae
	} else {
		return false
	}
	return e.Kind == kind
}
