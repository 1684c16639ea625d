package kvcache

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/lorelink/internal/domain"
)

// CachedSummarizer caches summaries keyed by model and description.
type CachedSummarizer struct {
	inner domain.Summarizer
	cache *Cache
	model string
}

// NewSummarizer wraps inner with cache.
func NewSummarizer(inner domain.Summarizer, cache *Cache, model string) *CachedSummarizer {
	return &CachedSummarizer{inner: inner, cache: cache, model: model}
}

// Summarize returns a cached summary or calls the inner summarizer. Failures are not cached.
func (s *CachedSummarizer) Summarize(ctx context.Context, description string) (string, error) {
	if summary, ok := s.cache.Get(ctx, s.model, description); ok {
		return summary, nil
	}

	summary, err := s.inner.Summarize(ctx, description)
	if err != nil {
		return "", fmt.Errorf("summarize description: %w", err)
	}

	s.cache.Put(ctx, summary, s.model, description)
	return summary, nil
}
