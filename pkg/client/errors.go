package client

import (
	"fmt"

	"github.com/kailas-cloud/lorelink/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound        = domain.ErrNotFound
	ErrInvalidEntity   = domain.ErrInvalidEntity
	ErrInvalidID       = domain.ErrInvalidID
	ErrTypeMismatch    = domain.ErrTypeMismatch
	ErrSummarizerError = domain.ErrSummarizerError
	ErrNotImplemented  = domain.ErrNotImplemented
	ErrUnauthorized    = fmt.Errorf("unauthorized")
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("lorelink: http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("lorelink: %s (http %d): %s", e.Code, e.StatusCode, e.Message)
}

// Unwrap maps the error code to a sentinel.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "entity_not_found":
		return ErrNotFound
	case "validation_failed":
		return ErrInvalidEntity
	case "invalid_identifier":
		return ErrInvalidID
	case "type_mismatch":
		return ErrTypeMismatch
	case "summarizer_error":
		return ErrSummarizerError
	case "not_implemented":
		return ErrNotImplemented
	case "unauthorized":
		return ErrUnauthorized
	default:
		return nil
	}
}
