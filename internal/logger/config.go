package logger

import (
	"github.com/aleister1102/dataspy/internal/config"
	"github.com/rs/zerolog"
)

// LogFormat selects how records are rendered.
type LogFormat string

const (
	FormatConsole LogFormat = "console"
	FormatJSON    LogFormat = "json"
	// FormatText is console layout without color.
	FormatText LogFormat = "text"
)

// LoggerConfig is the resolved logger setup. A nil File disables file
// output.
type LoggerConfig struct {
	Level   zerolog.Level
	Format  LogFormat
	Console bool
	File    *FileOutput
}

// FileOutput describes a lumberjack-rotated log file.
type FileOutput struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultLoggerConfig logs info and above to the console.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:   zerolog.InfoLevel,
		Format:  FormatConsole,
		Console: true,
	}
}

func defaultFileOutput(path string) *FileOutput {
	return &FileOutput{
		Path:       path,
		MaxSizeMB:  config.DefaultMaxLogSizeMB,
		MaxBackups: config.DefaultMaxLogBackups,
		MaxAgeDays: config.DefaultMaxLogAgeDays,
	}
}
