package client

import domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"

// AttributeValue is a scalar, wrapped or list attribute value.
type AttributeValue = domentity.AttributeValue

// Attribute value constructors.
var (
	Scalar  = domentity.Scalar
	Wrapped = domentity.Wrapped
	ListOf  = domentity.ListOf
)

// Entity is one catalog record.
type Entity struct {
	ID             string                    `json:"id"`
	Name           string                    `json:"name"`
	Type           string                    `json:"type"`
	PreviewIconURL string                    `json:"previewIconUrl,omitempty"`
	Description    string                    `json:"description,omitempty"`
	Attributes     map[string]AttributeValue `json:"attributes,omitempty"`
}

// EntityList is a campaign catalog listing.
type EntityList struct {
	Items   []Entity `json:"items"`
	Version int64    `json:"version"`
}

// BatchItem is the outcome of one item of a batch call.
type BatchItem struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// BatchResult summarises a batch call.
type BatchResult struct {
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// SearchToken is one searchable (name, entity) pair, longest names first.
type SearchToken struct {
	Term     string `json:"term"`
	EntityID string `json:"entityId"`
}

// IndexEntry is the part of a record the scanner reads.
type IndexEntry struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	PreviewIconURL string `json:"previewIconUrl,omitempty"`
}

// Duplicate lists entities sharing one name.
type Duplicate struct {
	Term      string   `json:"term"`
	EntityIDs []string `json:"entityIds"`
}

// Index is the campaign's entity index.
type Index struct {
	Version      int64                 `json:"version"`
	SearchTokens []SearchToken         `json:"searchTokens"`
	ByID         map[string]IndexEntry `json:"byId"`
	Duplicates   []Duplicate           `json:"duplicates"`
}

// Annotation is annotated text and the catalog version it reflects.
type Annotation struct {
	Text    string `json:"text"`
	Version int64  `json:"version"`
}

// Preview is the data shown for one entity in a preview surface.
type Preview struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Summary     string            `json:"summary,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	IconURL     string            `json:"iconUrl,omitempty"`
}

// HealthStatus represents the aggregated server health.
type HealthStatus struct {
	Status  string            `json:"status"` // "ok", "degraded", "error"
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}
