// Package summary guards the description summarizer with a token budget.
package summary

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lorelink/internal/domain"
	"github.com/kailas-cloud/lorelink/internal/metrics"
)

// usageSummarizer reports billed tokens alongside the summary.
type usageSummarizer interface {
	SummarizeWithUsage(ctx context.Context, description string) (string, int, error)
}

// BudgetedSummarizer checks the budget before each call and records what the call cost.
type BudgetedSummarizer struct {
	inner  domain.Summarizer
	budget *Budget
	model  string
	logger *zap.Logger
}

// NewBudgeted wraps inner with budget enforcement.
func NewBudgeted(inner domain.Summarizer, budget *Budget, model string, logger *zap.Logger) *BudgetedSummarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BudgetedSummarizer{inner: inner, budget: budget, model: model, logger: logger}
}

// Summarize implements domain.Summarizer.
func (s *BudgetedSummarizer) Summarize(ctx context.Context, description string) (string, error) {
	if err := s.budget.Check(ctx); err != nil {
		metrics.SummarizerBudgetRejectedTotal.Inc()
		s.logger.Warn("Summarizer budget exceeded", zap.String("model", s.model), zap.Error(err))
		return "", fmt.Errorf("budget check: %w", err)
	}

	start := time.Now()
	summary, tokens, err := s.call(ctx, description)
	if tokens > 0 {
		s.budget.Record(int64(tokens))
		metrics.SummarizerBudgetTokensRemaining.WithLabelValues("daily").Set(float64(s.budget.RemainingDaily()))
		metrics.SummarizerBudgetTokensRemaining.WithLabelValues("monthly").Set(float64(s.budget.RemainingMonthly()))
	}
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}

	s.logger.Debug("Summary generated",
		zap.String("model", s.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("tokens", tokens),
	)
	return summary, nil
}

// call falls back to a rough four-bytes-per-token estimate when the inner
// summarizer does not report usage.
func (s *BudgetedSummarizer) call(ctx context.Context, description string) (string, int, error) {
	if us, ok := s.inner.(usageSummarizer); ok {
		return us.SummarizeWithUsage(ctx, description)
	}
	summary, err := s.inner.Summarize(ctx, description)
	if err != nil {
		return "", 0, err
	}
	return summary, (len(description) + len(summary) + 3) / 4, nil
}
