package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lorelink/internal/domain"
	"github.com/kailas-cloud/lorelink/internal/metrics"
)

type plainSummarizer struct {
	summary string
	err     error
	calls   int
}

func (p *plainSummarizer) Summarize(_ context.Context, _ string) (string, error) {
	p.calls++
	return p.summary, p.err
}

type meteredSummarizer struct {
	plainSummarizer
	tokens int
}

func (m *meteredSummarizer) SummarizeWithUsage(_ context.Context, _ string) (string, int, error) {
	m.calls++
	return m.summary, m.tokens, m.err
}

func TestBudgeted_RecordsReportedUsage(t *testing.T) {
	inner := &meteredSummarizer{plainSummarizer: plainSummarizer{summary: "short"}, tokens: 52}
	b := NewBudget(100, 0, BudgetActionReject, zap.NewNop())
	s := NewBudgeted(inner, b, "test-model", zap.NewNop())

	got, err := s.Summarize(context.Background(), "a long description")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "short" {
		t.Errorf("got %q", got)
	}
	if b.RemainingDaily() != 48 {
		t.Errorf("RemainingDaily() = %d, want 48", b.RemainingDaily())
	}
	if v := testutil.ToFloat64(metrics.SummarizerBudgetTokensRemaining.WithLabelValues("daily")); v != 48 {
		t.Errorf("remaining gauge = %v", v)
	}
}

func TestBudgeted_EstimatesWithoutUsage(t *testing.T) {
	inner := &plainSummarizer{summary: "abcd"}
	b := NewBudget(100, 0, BudgetActionReject, zap.NewNop())
	s := NewBudgeted(inner, b, "m", nil)

	if _, err := s.Summarize(context.Background(), "0123456789ab"); err != nil {
		t.Fatal(err)
	}
	// (12 + 4 + 3) / 4
	if b.RemainingDaily() != 96 {
		t.Errorf("RemainingDaily() = %d, want 96", b.RemainingDaily())
	}
}

func TestBudgeted_RejectSkipsInner(t *testing.T) {
	inner := &meteredSummarizer{plainSummarizer: plainSummarizer{summary: "x"}, tokens: 10}
	b := NewBudget(10, 0, BudgetActionReject, zap.NewNop())
	b.Record(10)
	s := NewBudgeted(inner, b, "m", zap.NewNop())

	before := testutil.ToFloat64(metrics.SummarizerBudgetRejectedTotal)
	_, err := s.Summarize(context.Background(), "text")
	if !errors.Is(err, domain.ErrSummarizerBudgetExceeded) {
		t.Fatalf("expected budget error, got %v", err)
	}
	if inner.calls != 0 {
		t.Errorf("inner called %d times", inner.calls)
	}
	if after := testutil.ToFloat64(metrics.SummarizerBudgetRejectedTotal); after != before+1 {
		t.Errorf("rejected counter = %v, want %v", after, before+1)
	}
}

func TestBudgeted_InnerErrorStillBillsTokens(t *testing.T) {
	inner := &meteredSummarizer{plainSummarizer: plainSummarizer{err: domain.ErrSummarizerError}, tokens: 7}
	b := NewBudget(100, 0, BudgetActionReject, zap.NewNop())
	s := NewBudgeted(inner, b, "m", zap.NewNop())

	if _, err := s.Summarize(context.Background(), "text"); !errors.Is(err, domain.ErrSummarizerError) {
		t.Fatalf("expected summarizer error, got %v", err)
	}
	if b.RemainingDaily() != 93 {
		t.Errorf("RemainingDaily() = %d, want 93", b.RemainingDaily())
	}
}
