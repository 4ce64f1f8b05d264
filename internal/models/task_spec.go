package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCheckIntervalSeconds matches the one hour default of registered tasks.
const DefaultCheckIntervalSeconds = 3600

// TaskSpec is the flat, user-facing representation of a task used by config
// files, the CLI and the HTTP API.
type TaskSpec struct {
	ID                   string            `json:"id,omitempty" yaml:"id,omitempty"`
	Name                 string            `json:"name" yaml:"name" validate:"required"`
	URL                  string            `json:"url" yaml:"url" validate:"required,url"`
	CheckType            string            `json:"check_type" yaml:"check_type" validate:"required,oneof=full_page selector json_api price"`
	Selector             string            `json:"selector,omitempty" yaml:"selector,omitempty" validate:"required_if=CheckType selector,required_if=CheckType price"`
	JSONPath             string            `json:"json_path,omitempty" yaml:"json_path,omitempty"`
	Presence             string            `json:"presence,omitempty" yaml:"presence,omitempty" validate:"omitempty,oneof=strict availability appearance"`
	CheckIntervalSeconds int               `json:"check_interval_seconds,omitempty" yaml:"check_interval_seconds,omitempty" validate:"omitempty,min=1"`
	Enabled              *bool             `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Headers              map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// ToTask converts s into a MonitorTask. A missing ID is generated.
func (s TaskSpec) ToTask(now time.Time) (MonitorTask, error) {
	strategy, err := NewCheckStrategy(CheckType(s.CheckType), s.Selector, s.JSONPath, s.Presence)
	if err != nil {
		return MonitorTask{}, err
	}

	id := s.ID
	if id == "" {
		id = uuid.NewString()
	}

	interval := s.CheckIntervalSeconds
	if interval <= 0 {
		interval = DefaultCheckIntervalSeconds
	}

	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}

	task := MonitorTask{
		ID:            id,
		Name:          s.Name,
		URL:           s.URL,
		Strategy:      strategy,
		CheckInterval: time.Duration(interval) * time.Second,
		Enabled:       enabled,
		CreatedAt:     now.UTC(),
		Headers:       s.Headers,
	}
	return task, task.Validate()
}

// SeedID returns s.ID, or an ID derived from what the task watches
// so a config entry without one maps to the same task on every start.
func (s TaskSpec) SeedID() string {
	if s.ID != "" {
		return s.ID
	}
	key := strings.Join([]string{s.URL, s.CheckType, s.Selector, s.JSONPath}, "\x00")
	sum := sha256.Sum256([]byte(key))
	return "seed-" + hex.EncodeToString(sum[:8])
}

// TaskView is the JSON shape of a task returned to clients.
type TaskView struct {
	ID                   string            `json:"id"`
	Name                 string            `json:"name"`
	URL                  string            `json:"url"`
	CheckType            CheckType         `json:"check_type"`
	Selector             string            `json:"selector,omitempty"`
	JSONPath             string            `json:"json_path,omitempty"`
	Presence             string            `json:"presence,omitempty"`
	CheckIntervalSeconds int64             `json:"check_interval_seconds"`
	LastCheck            *time.Time        `json:"last_check,omitempty"`
	LastContentHash      *string           `json:"last_content_hash,omitempty"`
	LastValue            *string           `json:"last_value,omitempty"`
	Enabled              bool              `json:"enabled"`
	CreatedAt            time.Time         `json:"created_at"`
	Headers              map[string]string `json:"headers,omitempty"`
}

// NewTaskView renders a task for output.
func NewTaskView(t MonitorTask) TaskView {
	selector, jsonPath, presence := StrategyFields(t.Strategy)
	return TaskView{
		ID:                   t.ID,
		Name:                 t.Name,
		URL:                  t.URL,
		CheckType:            t.CheckType(),
		Selector:             selector,
		JSONPath:             jsonPath,
		Presence:             presence,
		CheckIntervalSeconds: int64(t.CheckInterval / time.Second),
		LastCheck:            t.LastCheck,
		LastContentHash:      t.LastContentHash,
		LastValue:            t.LastValue,
		Enabled:              t.Enabled,
		CreatedAt:            t.CreatedAt,
		Headers:              t.Headers,
	}
}
