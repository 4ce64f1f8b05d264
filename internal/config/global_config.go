package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const maxConfigFileSize = 10 * 1024 * 1024

// GlobalConfig contains all configuration sections for the application
type GlobalConfig struct {
	LogConfig          LogConfig          `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	MonitorConfig      MonitorConfig      `json:"monitor_config,omitempty" yaml:"monitor_config,omitempty"`
	StorageConfig      StorageConfig      `json:"storage_config,omitempty" yaml:"storage_config,omitempty"`
	SnapshotConfig     SnapshotConfig     `json:"snapshot_config,omitempty" yaml:"snapshot_config,omitempty"`
	NotificationConfig NotificationConfig `json:"notification_config,omitempty" yaml:"notification_config,omitempty"`
	APIConfig          APIConfig          `json:"api_config,omitempty" yaml:"api_config,omitempty"`
	// Tasks are seeded into the registry on startup.
	Tasks []models.TaskSpec `json:"tasks,omitempty" yaml:"tasks,omitempty" validate:"dive"`
}

// NewDefaultGlobalConfig creates a new GlobalConfig with default values
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		LogConfig:          NewDefaultLogConfig(),
		MonitorConfig:      NewDefaultMonitorConfig(),
		StorageConfig:      NewDefaultStorageConfig(),
		SnapshotConfig:     NewDefaultSnapshotConfig(),
		NotificationConfig: NewDefaultNotificationConfig(),
		APIConfig:          NewDefaultAPIConfig(),
		Tasks:              []models.TaskSpec{},
	}
}

// LoadGlobalConfig loads the configuration from a file or default locations.
// YAML is used for .yaml/.yml files, JSON otherwise. Environment overrides
// are applied last.
func LoadGlobalConfig(providedPath string, logger zerolog.Logger) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		logger.Debug().Msg("No config file found, using defaults")
		ApplyEnvOverrides(cfg)
		return cfg, nil
	}

	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		return nil, common.NewValidationError("config_file", filePath, "config file does not exist")
	}
	if info.Size() > maxConfigFileSize {
		return nil, common.NewValidationError("config_file", filePath, "config file is too large")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, common.WrapError(err, "failed to load config file content")
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, common.WrapError(err, "failed to parse config content")
	}

	ApplyEnvOverrides(cfg)
	logger.Info().Str("path", filePath).Int("seed_tasks", len(cfg.Tasks)).Msg("Configuration loaded")
	return cfg, nil
}

// ApplyEnvOverrides copies secrets and deployment settings from the
// environment, which cmd populates from .env files.
func ApplyEnvOverrides(cfg *GlobalConfig) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"DATASPY_LOG_LEVEL", &cfg.LogConfig.LogLevel},
		{"DATASPY_STORAGE_DRIVER", &cfg.StorageConfig.Driver},
		{"DATASPY_STORAGE_DSN", &cfg.StorageConfig.DSN},
		{"DATASPY_SQLITE_PATH", &cfg.StorageConfig.SQLitePath},
		{"DATASPY_GCS_BUCKET", &cfg.SnapshotConfig.Bucket},
		{"DATASPY_DISCORD_WEBHOOK_URL", &cfg.NotificationConfig.DiscordWebhookURL},
		{"DATASPY_WEBHOOK_URL", &cfg.NotificationConfig.WebhookURL},
		{"DATASPY_SMTP_PASSWORD", &cfg.NotificationConfig.SMTP.Password},
		{"DATASPY_API_LISTEN_ADDR", &cfg.APIConfig.ListenAddr},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && strings.TrimSpace(v) != "" {
			*o.target = strings.TrimSpace(v)
		}
	}
}

func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return common.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}
