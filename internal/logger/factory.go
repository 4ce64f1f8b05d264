package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// WriterFactory creates log writers for a format.
type WriterFactory struct {
	console io.Writer
}

// NewWriterFactory creates a factory writing console output to stderr.
func NewWriterFactory() *WriterFactory {
	return &WriterFactory{console: os.Stderr}
}

// CreateConsoleWriter wraps the console stream for the given format.
func (wf *WriterFactory) CreateConsoleWriter(format LogFormat) io.Writer {
	return wrapFormat(wf.console, format, false)
}

// CreateFileWriter creates a rotating file writer. File output never uses color.
func (wf *WriterFactory) CreateFileWriter(file FileOutput, format LogFormat) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(file.Path), 0755); err != nil {
		return nil, err
	}

	rotator := &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   file.Compress,
		LocalTime:  true,
	}
	return wrapFormat(rotator, format, true), nil
}

func wrapFormat(out io.Writer, format LogFormat, noColor bool) io.Writer {
	switch format {
	case FormatJSON:
		return out
	case FormatText:
		noColor = true
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}
}
