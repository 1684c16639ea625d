package health

import "context"

// DBPinger checks catalog storage availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// SummarizerChecker checks the description summarizer endpoint.
type SummarizerChecker interface {
	HealthCheck(ctx context.Context) error
}
