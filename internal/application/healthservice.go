package application

import (
	"context"
	"time"
)

// Pinger reports whether the local store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReport is the service health as exposed by the API.
type HealthReport struct {
	Status         string // "ok" or "degraded".
	Database       string // "ok" or the ping error.
	LastSyncAt     *time.Time
	LastSyncErrors int
}

// HealthService reports the store's reachability and the outcome of the
// most recent scheduled sync pass.
type HealthService struct {
	db     Pinger
	poller *Poller
}

// NewHealthService creates a new HealthService. poller may be nil when no
// scheduler runs (CLI one-shot commands).
func NewHealthService(db Pinger, poller *Poller) *HealthService {
	return &HealthService{db: db, poller: poller}
}

// Check assembles the current health report.
func (s *HealthService) Check(ctx context.Context) HealthReport {
	report := HealthReport{Status: "ok", Database: "ok"}

	if err := s.db.Ping(ctx); err != nil {
		report.Status = "degraded"
		report.Database = err.Error()
	}

	if s.poller != nil {
		if last, ok := s.poller.LastResult(); ok {
			at := last.At
			report.LastSyncAt = &at
			report.LastSyncErrors = len(last.Errors)
		}
	}

	return report
}
