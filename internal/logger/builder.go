package logger

import (
	"io"
	stdlog "log"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/config"
	"github.com/rs/zerolog"
)

// LoggerBuilder provides fluent interface for building loggers
type LoggerBuilder struct {
	config  LoggerConfig
	factory *WriterFactory
	extra   []io.Writer
	err     error
}

// NewLoggerBuilder creates a new logger builder
func NewLoggerBuilder() *LoggerBuilder {
	return &LoggerBuilder{
		config:  DefaultLoggerConfig(),
		factory: NewWriterFactory(),
	}
}

// WithConfig sets the logger configuration
func (lb *LoggerBuilder) WithConfig(cfg config.LogConfig) *LoggerBuilder {
	lb.config, lb.err = ConvertConfig(cfg)
	return lb
}

// WithConsole toggles console output.
func (lb *LoggerBuilder) WithConsole(enabled bool) *LoggerBuilder {
	lb.config.Console = enabled
	return lb
}

// WithWriter adds an extra raw output, used by tests and embedding callers.
func (lb *LoggerBuilder) WithWriter(w io.Writer) *LoggerBuilder {
	lb.extra = append(lb.extra, w)
	return lb
}

// Build creates the logger instance
func (lb *LoggerBuilder) Build() (zerolog.Logger, error) {
	if lb.err != nil {
		return zerolog.Nop(), lb.err
	}
	if err := lb.validateConfig(); err != nil {
		return zerolog.Nop(), err
	}

	writers, err := lb.createWriters()
	if err != nil {
		return zerolog.Nop(), common.WrapError(err, "failed to create log writers")
	}
	if len(writers) == 0 {
		return zerolog.Nop(), common.NewError("no output writers configured")
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lb.config.Level).
		With().
		Timestamp().
		Logger()

	stdlog.SetOutput(logger)
	stdlog.SetFlags(0)

	return logger, nil
}

func (lb *LoggerBuilder) validateConfig() error {
	file := lb.config.File
	if file == nil {
		return nil
	}
	if file.Path == "" {
		return common.NewValidationError("log_file", file.Path, "file path required when file logging enabled")
	}
	if file.MaxSizeMB <= 0 {
		return common.NewValidationError("max_log_size_mb", file.MaxSizeMB, "max size must be positive")
	}
	return nil
}

func (lb *LoggerBuilder) createWriters() ([]io.Writer, error) {
	var writers []io.Writer

	if lb.config.Console {
		writers = append(writers, lb.factory.CreateConsoleWriter(lb.config.Format))
	}

	if lb.config.File != nil {
		fileWriter, err := lb.factory.CreateFileWriter(*lb.config.File, lb.config.Format)
		if err != nil {
			return nil, err
		}
		writers = append(writers, fileWriter)
	}

	return append(writers, lb.extra...), nil
}
