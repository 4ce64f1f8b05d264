package logger

import (
	"strings"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/rs/zerolog"
)

// ParseLevel parses a level name, falling back to info on bad input.
func ParseLevel(levelStr string) (zerolog.Level, error) {
	if strings.TrimSpace(levelStr) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return zerolog.InfoLevel, common.WrapError(err, "invalid log level")
	}
	return level, nil
}

// ParseFormat maps a format name to LogFormat. Unknown names are console.
func ParseFormat(formatStr string) LogFormat {
	switch f := LogFormat(strings.ToLower(strings.TrimSpace(formatStr))); f {
	case FormatJSON, FormatText:
		return f
	}
	return FormatConsole
}
