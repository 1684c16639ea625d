package domain

import "context"

// Summarizer condenses a long entity description for the preview surface.
type Summarizer interface {
	Summarize(ctx context.Context, description string) (string, error)
}
