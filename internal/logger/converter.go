package logger

import (
	"github.com/aleister1102/dataspy/internal/config"
)

// ConvertConfig resolves the log section of the config. An invalid level is
// reported but the returned config is still usable at info level.
func ConvertConfig(cfg config.LogConfig) (LoggerConfig, error) {
	level, err := ParseLevel(cfg.LogLevel)

	out := DefaultLoggerConfig()
	out.Level = level
	out.Format = ParseFormat(cfg.LogFormat)
	if cfg.LogFile == "" {
		return out, err
	}

	file := defaultFileOutput(cfg.LogFile)
	file.Compress = cfg.CompressBackups
	if cfg.MaxLogSizeMB > 0 {
		file.MaxSizeMB = cfg.MaxLogSizeMB
	}
	if cfg.MaxLogBackups > 0 {
		file.MaxBackups = cfg.MaxLogBackups
	}
	if cfg.MaxLogAgeDays > 0 {
		file.MaxAgeDays = cfg.MaxLogAgeDays
	}
	out.File = file
	return out, err
}
