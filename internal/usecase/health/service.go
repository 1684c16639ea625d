package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component (the summarizer) is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the catalog storage is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const defaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status  Status
	Checks  map[string]CheckResult
	Version string
}

// Service coordinates health checks.
type Service struct {
	db         DBPinger
	summarizer SummarizerChecker
	version    string
	timeout    time.Duration
}

// New creates a Service. summarizer can be nil.
func New(db DBPinger, summarizer SummarizerChecker) *Service {
	return &Service{db: db, summarizer: summarizer, timeout: defaultCheckTimeout}
}

// WithVersion sets the build version reported alongside the checks.
func (s *Service) WithVersion(v string) *Service {
	s.version = v
	return s
}

// WithTimeout bounds each individual check.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 2)
	status := Healthy

	checks["database"] = s.run(ctx, s.db.Ping)
	if checks["database"] == CheckError {
		status = Unhealthy
	}

	if s.summarizer != nil {
		checks["summarizer"] = s.run(ctx, s.summarizer.HealthCheck)
		if checks["summarizer"] == CheckError && status == Healthy {
			status = Degraded
		}
	}

	return Report{Status: status, Checks: checks, Version: s.version}
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := check(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
