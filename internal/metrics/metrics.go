package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lorelink"

// Index and annotation metrics.
var (
	IndexBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_builds_total",
			Help:      "Entity index rebuilds",
		},
		[]string{"result"}, // "ok" / "error"
	)

	IndexBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_build_duration_seconds",
			Help:      "Entity index build duration in seconds, catalog load included",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	IndexSkippedRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_skipped_records_total",
			Help:      "Catalog records excluded from an index (empty id, short name)",
		},
	)

	AnnotateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "annotate_duration_seconds",
			Help:      "Text annotation duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"engine"},
	)

	AnnotateMentionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "annotate_mentions_total",
			Help:      "Entity references emitted by the scanner",
		},
	)

	AnnotateFailOpenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "annotate_failopen_total",
			Help:      "Annotations that returned the original text after an internal failure",
		},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_total",
			Help:      "Text cache hits and misses",
		},
		[]string{"cache", "result"},
	)
)

// Summarizer metrics.
var (
	SummarizerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summarizer_requests_total",
			Help:      "Description summarizer requests",
		},
		[]string{"status"},
	)

	SummarizerRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "summarizer_request_duration_seconds",
			Help:      "Description summarizer request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	SummarizerTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summarizer_tokens_total",
			Help:      "Tokens billed by the summarizer API",
		},
	)

	SummarizerBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "summarizer_budget_tokens_remaining",
			Help:      "Remaining summarizer token budget, -1 when unlimited",
		},
		[]string{"period"}, // "daily" / "monthly"
	)

	SummarizerBudgetRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summarizer_budget_rejected_total",
			Help:      "Summaries skipped because the token budget was spent",
		},
	)
)

var registerOnce sync.Once

// Register registers the HTTP and domain metrics with the default registry. Call once from main.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			IndexBuildsTotal,
			IndexBuildDuration,
			IndexSkippedRecordsTotal,
			AnnotateDuration,
			AnnotateMentionsTotal,
			AnnotateFailOpenTotal,
			CacheTotal,
			SummarizerRequestsTotal,
			SummarizerRequestDuration,
			SummarizerTokensTotal,
			SummarizerBudgetTokensRemaining,
			SummarizerBudgetRejectedTotal,
		)
	})
}
