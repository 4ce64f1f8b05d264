package monitor

import (
	"sync/atomic"

	"github.com/aleister1102/dataspy/internal/models"
)

// Stats counts scheduler and check activity since process start.
type Stats struct {
	ticks               atomic.Int64
	throttledTicks      atomic.Int64
	checks              atomic.Int64
	baselines           atomic.Int64
	noChange            atomic.Int64
	changed             atomic.Int64
	fetchFailures       atomic.Int64
	extractionFailures  atomic.Int64
	persistenceFailures atomic.Int64
	staleChecks         atomic.Int64
	internalFailures    atomic.Int64
	skippedInFlight     atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Ticks               int64 `json:"ticks"`
	ThrottledTicks      int64 `json:"throttled_ticks"`
	Checks              int64 `json:"checks"`
	Baselines           int64 `json:"baselines"`
	NoChange            int64 `json:"no_change"`
	Changed             int64 `json:"changed"`
	FetchFailures       int64 `json:"fetch_failures"`
	ExtractionFailures  int64 `json:"extraction_failures"`
	PersistenceFailures int64 `json:"persistence_failures"`
	StaleChecks         int64 `json:"stale_checks"`
	InternalFailures    int64 `json:"internal_failures"`
	SkippedInFlight     int64 `json:"skipped_inflight"`
	Tasks               int   `json:"tasks"`
	InFlight            int   `json:"in_flight"`
}

// Record counts one check outcome.
func (s *Stats) Record(o models.CheckOutcome) {
	switch o.Status {
	case models.StatusSkipped:
		s.skippedInFlight.Add(1)
		return
	case models.StatusBaseline:
		s.baselines.Add(1)
	case models.StatusNoChange:
		s.noChange.Add(1)
	case models.StatusChanged:
		s.changed.Add(1)
	case models.StatusFailed:
		switch o.ErrKind {
		case models.FailureFetch:
			s.fetchFailures.Add(1)
		case models.FailureExtraction:
			s.extractionFailures.Add(1)
		case models.FailurePersistence:
			s.persistenceFailures.Add(1)
		case models.FailureStale:
			s.staleChecks.Add(1)
		case models.FailureInternal:
			s.internalFailures.Add(1)
		}
	}
	s.checks.Add(1)
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Ticks:               s.ticks.Load(),
		ThrottledTicks:      s.throttledTicks.Load(),
		Checks:              s.checks.Load(),
		Baselines:           s.baselines.Load(),
		NoChange:            s.noChange.Load(),
		Changed:             s.changed.Load(),
		FetchFailures:       s.fetchFailures.Load(),
		ExtractionFailures:  s.extractionFailures.Load(),
		PersistenceFailures: s.persistenceFailures.Load(),
		StaleChecks:         s.staleChecks.Load(),
		InternalFailures:    s.internalFailures.Load(),
		SkippedInFlight:     s.skippedInFlight.Load(),
	}
}
