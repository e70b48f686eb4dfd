package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Log level aliases so callers need not import zapcore
const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
)

// ParseLevel parses a case-insensitive level name. "warning" is accepted
// for warn.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// LevelFor returns the level to run with: the parsed name when valid,
// otherwise debug in development and info in production.
func LevelFor(name string, development bool) zapcore.Level {
	if level, err := ParseLevel(name); err == nil && strings.TrimSpace(name) != "" {
		return level
	}
	if development {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
