package models

import (
	"fmt"
	"time"
)

// ChangeType classifies a detected change.
type ChangeType string

const (
	ChangeContentChanged ChangeType = "content_changed"
	ChangePriceDropped   ChangeType = "price_dropped"
	ChangePriceRose      ChangeType = "price_rose"
	ChangeAvailable      ChangeType = "available"
	ChangeUnavailable    ChangeType = "unavailable"
	ChangeNewElement     ChangeType = "new_element"
)

// Valid reports whether ct is a known change type.
func (ct ChangeType) Valid() bool {
	switch ct {
	case ChangeContentChanged, ChangePriceDropped, ChangePriceRose,
		ChangeAvailable, ChangeUnavailable, ChangeNewElement:
		return true
	}
	return false
}

// ParseChangeType parses a persisted change type.
func ParseChangeType(s string) (ChangeType, error) {
	ct := ChangeType(s)
	if !ct.Valid() {
		return "", fmt.Errorf("unknown change type %q", s)
	}
	return ct, nil
}

// ChangeEvent is the immutable record of one detected change.
type ChangeEvent struct {
	ID          string     `json:"id"`
	TaskID      string     `json:"task_id"`
	Timestamp   time.Time  `json:"timestamp"`
	ChangeType  ChangeType `json:"change_type"`
	OldValue    string     `json:"old_value,omitempty"`
	NewValue    string     `json:"new_value,omitempty"`
	DiffSummary string     `json:"diff_summary"`
}

// Snapshot points at the raw content stored when a change was detected.
type Snapshot struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Timestamp   time.Time `json:"timestamp"`
	ContentHash string    `json:"content_hash"`
	ContentPath string    `json:"content_path"`
}
