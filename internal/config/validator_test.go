package config

import (
	"testing"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestValidateConfig_CustomTags(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *GlobalConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(cfg *GlobalConfig) {}},
		{name: "bad log level", mutate: func(cfg *GlobalConfig) { cfg.LogConfig.LogLevel = "loud" }, wantErr: "loglevel"},
		{name: "bad log format", mutate: func(cfg *GlobalConfig) { cfg.LogConfig.LogFormat = "xml" }, wantErr: "logformat"},
		{name: "bad storage driver", mutate: func(cfg *GlobalConfig) { cfg.StorageConfig.Driver = "mysql" }, wantErr: "storagedriver"},
		{name: "postgres without dsn", mutate: func(cfg *GlobalConfig) { cfg.StorageConfig.Driver = "postgres" }, wantErr: "required_if"},
		{name: "bad blob backend", mutate: func(cfg *GlobalConfig) { cfg.SnapshotConfig.Backend = "s3" }, wantErr: "blobbackend"},
		{name: "gcs without bucket", mutate: func(cfg *GlobalConfig) { cfg.SnapshotConfig.Backend = "gcs" }, wantErr: "required_if"},
		{name: "zero concurrency allowed as unset", mutate: func(cfg *GlobalConfig) { cfg.MonitorConfig.MaxConcurrentChecks = 0 }},
		{name: "memory percent over 100", mutate: func(cfg *GlobalConfig) { cfg.MonitorConfig.MaxMemoryPercent = 120 }, wantErr: "lte"},
		{name: "bad webhook", mutate: func(cfg *GlobalConfig) { cfg.NotificationConfig.WebhookURL = "not a url" }, wantErr: "url"},
		{name: "bad notify_on", mutate: func(cfg *GlobalConfig) { cfg.NotificationConfig.NotifyOn = []string{"deleted"} }, wantErr: "oneof"},
		{name: "invalid seed task", mutate: func(cfg *GlobalConfig) {
			cfg.Tasks = []models.TaskSpec{{Name: "x", URL: "https://x.example", CheckType: "selector"}}
		}, wantErr: "required_if"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultGlobalConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateTaskSpec(t *testing.T) {
	tests := []struct {
		name    string
		spec    models.TaskSpec
		wantErr bool
	}{
		{name: "full page", spec: models.TaskSpec{Name: "a", URL: "https://a.example", CheckType: "full_page"}},
		{name: "json api without path", spec: models.TaskSpec{Name: "a", URL: "https://a.example/api", CheckType: "json_api"}},
		{name: "price with selector", spec: models.TaskSpec{Name: "a", URL: "https://a.example", CheckType: "price", Selector: ".p"}},
		{name: "price without selector", spec: models.TaskSpec{Name: "a", URL: "https://a.example", CheckType: "price"}, wantErr: true},
		{name: "unknown check type", spec: models.TaskSpec{Name: "a", URL: "https://a.example", CheckType: "visual"}, wantErr: true},
		{name: "missing url", spec: models.TaskSpec{Name: "a", CheckType: "full_page"}, wantErr: true},
		{name: "zero interval means default", spec: models.TaskSpec{Name: "a", URL: "https://a.example", CheckType: "full_page", CheckIntervalSeconds: 0}},
		{name: "negative interval", spec: models.TaskSpec{Name: "a", URL: "https://a.example", CheckType: "full_page", CheckIntervalSeconds: -5}, wantErr: true},
		{name: "bad presence", spec: models.TaskSpec{Name: "a", URL: "https://a.example", CheckType: "selector", Selector: "#s", Presence: "maybe"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTaskSpec(tt.spec)
			assert.Equal(t, tt.wantErr, err != nil, "err: %v", err)
		})
	}
}

func TestValidateConfig_WrapsInvalidConfiguration(t *testing.T) {
	cfg := NewDefaultGlobalConfig()
	cfg.StorageConfig.Driver = "mysql"
	assert.ErrorIs(t, ValidateConfig(cfg), common.ErrInvalidConfiguration)
}
