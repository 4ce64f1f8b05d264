package models

import "time"

// CheckStatus is the terminal status of one check.
type CheckStatus string

const (
	StatusBaseline CheckStatus = "baseline"
	StatusNoChange CheckStatus = "no_change"
	StatusChanged  CheckStatus = "changed"
	StatusFailed   CheckStatus = "failed"
	StatusSkipped  CheckStatus = "skipped"
)

// FailureKind says which stage of a check failed.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureFetch       FailureKind = "fetch"
	FailureExtraction  FailureKind = "extraction"
	FailurePersistence FailureKind = "persistence"
	// FailureStale means the task was replaced or removed while the check ran.
	FailureStale FailureKind = "stale"
	// FailureInternal is a recovered panic inside the check.
	FailureInternal FailureKind = "internal"
)

// CheckOutcome is the result of executing one check.
type CheckOutcome struct {
	TaskID    string
	Status    CheckStatus
	Event     *ChangeEvent
	Snapshot  *Snapshot
	ErrKind   FailureKind
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// Failed reports whether the check ended in failure.
func (o CheckOutcome) Failed() bool {
	return o.Status == StatusFailed
}
