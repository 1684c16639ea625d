package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidEntity signals a malformed entity record.
	ErrInvalidEntity = errors.New("invalid entity")
	// ErrInvalidID signals a malformed entity or campaign identifier.
	ErrInvalidID = errors.New("invalid identifier")
	// ErrTypeMismatch signals that an entity exists but under a different type.
	ErrTypeMismatch = errors.New("entity type mismatch")
	// ErrSummarizerError signals a description summarizer failure.
	ErrSummarizerError = errors.New("summarizer error")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")

	// ErrSummarizerBudgetExceeded signals a spent summarizer token budget. It matches ErrSummarizerError too.
	ErrSummarizerBudgetExceeded = fmt.Errorf("token budget exceeded: %w", ErrSummarizerError)
)

// TypeMismatchError wraps ErrTypeMismatch with the stored entity type.
type TypeMismatchError struct {
	Requested string
	Actual    string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: requested %q, stored %q", ErrTypeMismatch.Error(), e.Requested, e.Actual)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// NewTypeMismatch creates a type mismatch error.
func NewTypeMismatch(requested, actual string) error {
	return &TypeMismatchError{Requested: requested, Actual: actual}
}
