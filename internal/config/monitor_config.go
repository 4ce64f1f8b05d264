package config

import (
	"time"
)

// MonitorConfig defines configuration for the scheduling loop and the fetcher.
type MonitorConfig struct {
	TickIntervalSeconds         int     `json:"tick_interval_seconds,omitempty" yaml:"tick_interval_seconds,omitempty" validate:"omitempty,min=1"`
	DefaultCheckIntervalSeconds int     `json:"default_check_interval_seconds,omitempty" yaml:"default_check_interval_seconds,omitempty" validate:"omitempty,min=1"`
	MaxConcurrentChecks         int     `json:"max_concurrent_checks,omitempty" yaml:"max_concurrent_checks,omitempty" validate:"omitempty,min=1"`
	UserAgent                   string  `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	HTTPTimeoutSeconds          int     `json:"http_timeout_seconds,omitempty" yaml:"http_timeout_seconds,omitempty" validate:"omitempty,min=1"`
	MaxContentSize              int     `json:"max_content_size,omitempty" yaml:"max_content_size,omitempty" validate:"omitempty,min=1"` // bytes
	MaxMemoryPercent            float64 `json:"max_memory_percent,omitempty" yaml:"max_memory_percent,omitempty" validate:"omitempty,gt=0,lte=100"`
	EnableHTTP2                 bool    `json:"enable_http2" yaml:"enable_http2"`
	InsecureSkipVerify          bool    `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	FollowRedirects             bool    `json:"follow_redirects" yaml:"follow_redirects"`
	MaxRedirects                int     `json:"max_redirects,omitempty" yaml:"max_redirects,omitempty" validate:"omitempty,min=0"`
}

// NewDefaultMonitorConfig creates default monitor configuration
func NewDefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		TickIntervalSeconds:         DefaultTickIntervalSeconds,
		DefaultCheckIntervalSeconds: DefaultTaskCheckIntervalSeconds,
		MaxConcurrentChecks:         DefaultMaxConcurrentChecks,
		UserAgent:                   DefaultUserAgent,
		HTTPTimeoutSeconds:          DefaultHTTPTimeoutSeconds,
		MaxContentSize:              DefaultMaxContentSize,
		MaxMemoryPercent:            DefaultMaxMemoryPercent,
		EnableHTTP2:                 true,
		FollowRedirects:             true,
		MaxRedirects:                DefaultMaxRedirects,
	}
}

// TickInterval returns the scheduler wake-up period.
func (mc MonitorConfig) TickInterval() time.Duration {
	if mc.TickIntervalSeconds <= 0 {
		return DefaultTickIntervalSeconds * time.Second
	}
	return time.Duration(mc.TickIntervalSeconds) * time.Second
}

// HTTPTimeout returns the per-fetch timeout.
func (mc MonitorConfig) HTTPTimeout() time.Duration {
	if mc.HTTPTimeoutSeconds <= 0 {
		return DefaultHTTPTimeoutSeconds * time.Second
	}
	return time.Duration(mc.HTTPTimeoutSeconds) * time.Second
}
