package chi

import (
	domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"
)

// ErrorCode is the machine-readable error code of an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest        ErrorCode = "bad_request"
	ErrorCodeUnauthorized      ErrorCode = "unauthorized"
	ErrorCodeValidationFailed  ErrorCode = "validation_failed"
	ErrorCodeInvalidIdentifier ErrorCode = "invalid_identifier"
	ErrorCodeEntityNotFound    ErrorCode = "entity_not_found"
	ErrorCodeTypeMismatch      ErrorCode = "type_mismatch"
	ErrorCodeSummarizerError   ErrorCode = "summarizer_error"
	ErrorCodeNotImplemented    ErrorCode = "not_implemented"
	ErrorCodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Entity is the wire form of a catalog record.
type Entity struct {
	ID             string                              `json:"id"`
	Name           string                              `json:"name"`
	Type           string                              `json:"type"`
	PreviewIconURL string                              `json:"previewIconUrl,omitempty"`
	Description    string                              `json:"description,omitempty"`
	Attributes     map[string]domentity.AttributeValue `json:"attributes,omitempty"`
}

// EntityListResponse is returned by GET /campaigns/{campaign}/entities.
type EntityListResponse struct {
	Items   []Entity `json:"items"`
	Version int64    `json:"version"`
}

// BatchUpsertRequest is the body of POST /campaigns/{campaign}/entities/batch.
type BatchUpsertRequest struct {
	Items []Entity `json:"items"`
}

// BatchDeleteRequest is the body of POST /campaigns/{campaign}/entities/batch/delete.
type BatchDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BatchResultItem is the per-item outcome of a batch call.
type BatchResultItem struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Error  *ErrorResponse `json:"error,omitempty"`
}

// BatchResponse is returned by the batch endpoints.
type BatchResponse struct {
	Items     []BatchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// AnnotateRequest is the body of POST /campaigns/{campaign}/annotate.
type AnnotateRequest struct {
	Text   string `json:"text"`
	SelfID string `json:"self_id,omitempty"`
	Engine string `json:"engine,omitempty"`
}

// AnnotateResponse carries the annotated text and the catalog version it reflects.
type AnnotateResponse struct {
	Text    string `json:"text"`
	Version int64  `json:"version"`
}

// PreviewResponse is the data painted inside a preview surface.
type PreviewResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Summary     string            `json:"summary,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	IconURL     string            `json:"iconUrl,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}
