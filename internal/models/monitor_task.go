package models

import (
	"errors"
	"time"
)

// ErrRecordNotFound is returned when a record is not found in the store.
var ErrRecordNotFound = errors.New("record not found")

// MonitorTask is a registered resource to watch and its last observed state.
type MonitorTask struct {
	ID            string
	Name          string
	URL           string
	Strategy      CheckStrategy
	CheckInterval time.Duration
	// LastCheck is set on every check attempt, successful or not.
	LastCheck *time.Time
	// LastContentHash and LastValue hold the comparable of the latest
	// successful check.
	LastContentHash *string
	LastValue       *string
	Enabled         bool
	CreatedAt       time.Time
	Headers         map[string]string
}

// CheckType returns the task's strategy type.
func (t MonitorTask) CheckType() CheckType {
	if t.Strategy == nil {
		return CheckTypeFullPage
	}
	return t.Strategy.CheckType()
}

// Clone returns a deep copy so callers never share pointers with the registry.
func (t MonitorTask) Clone() MonitorTask {
	c := t
	if t.LastCheck != nil {
		v := *t.LastCheck
		c.LastCheck = &v
	}
	if t.LastContentHash != nil {
		v := *t.LastContentHash
		c.LastContentHash = &v
	}
	if t.LastValue != nil {
		v := *t.LastValue
		c.LastValue = &v
	}
	if t.Headers != nil {
		c.Headers = make(map[string]string, len(t.Headers))
		for k, v := range t.Headers {
			c.Headers[k] = v
		}
	}
	return c
}

// IsDue reports whether the task should be checked at now.
func (t MonitorTask) IsDue(now time.Time) bool {
	if !t.Enabled {
		return false
	}
	if t.LastCheck == nil {
		return true
	}
	return now.Sub(*t.LastCheck) >= t.CheckInterval
}

// PreviousComparable returns the comparable of the last successful check, or nil.
func (t MonitorTask) PreviousComparable() *Comparable {
	return DecodeComparable(t.LastContentHash, t.LastValue)
}

// Validate checks the structural invariants of a task.
func (t MonitorTask) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if t.URL == "" {
		return errors.New("task url is required")
	}
	if t.Strategy == nil {
		return errors.New("task strategy is required")
	}
	if t.CheckInterval <= 0 {
		return errors.New("check interval must be positive")
	}
	return nil
}
