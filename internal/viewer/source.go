// Package viewer is a terminal wiki that renders annotated entity pages and
// drives the preview controller from mouse and keyboard events.
package viewer

import (
	"context"
	"sort"
)

// Page is one entity page: its annotated description.
type Page struct {
	ID    string
	Title string
	Type  string
	Text  string
}

// Preview is the content of the preview box.
type Preview struct {
	ID          string
	Name        string
	Type        string
	Description string
	Summary     string
	Attributes  map[string]string
	IconURL     string
}

// Source supplies pages and previews for one campaign.
type Source interface {
	Page(ctx context.Context, entityID string) (Page, error)
	Preview(ctx context.Context, entityType, entityID string) (Preview, error)
	// Annotate links entity mentions in free text.
	Annotate(ctx context.Context, text string) (string, error)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
