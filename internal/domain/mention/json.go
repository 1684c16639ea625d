package mention

import (
	"encoding/json"
	"sort"
)

type recordJSON struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	PreviewIconURL string `json:"previewIconUrl,omitempty"`
}

type indexJSON struct {
	Version      int64                 `json:"version"`
	SearchTokens []SearchToken         `json:"searchTokens"`
	ByID         map[string]recordJSON `json:"byId"`
	Duplicates   []Duplicate           `json:"duplicates"`
}

// MarshalJSON renders the index for inspection. Only the fields the scanner
// reads are included per record.
func (idx *Index) MarshalJSON() ([]byte, error) {
	out := indexJSON{
		Version:      idx.version,
		SearchTokens: idx.tokens,
		ByID:         make(map[string]recordJSON, len(idx.byID)),
		Duplicates:   idx.duplicates,
	}
	if out.SearchTokens == nil {
		out.SearchTokens = []SearchToken{}
	}
	if out.Duplicates == nil {
		out.Duplicates = []Duplicate{}
	}
	for id, r := range idx.byID {
		out.ByID[id] = recordJSON{
			ID:             r.ID(),
			Name:           r.Name(),
			Type:           string(r.Type()),
			PreviewIconURL: r.IconURL(),
		}
	}
	return json.Marshal(out)
}

// EntityIDs returns the indexed ids in sorted order.
func (idx *Index) EntityIDs() []string {
	ids := make([]string, 0, len(idx.byID))
	for id := range idx.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
