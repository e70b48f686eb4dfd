// Package logging builds the agent's zap logger: JSON to a rotating file,
// console output shaped by the run mode, and a sampled child logger for the
// sampling loop.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects how the logger writes.
type Config struct {
	// Development switches the console to colored text and the default level to debug
	Development bool

	// FilePath is the rotated log file. Empty disables the file output.
	FilePath string

	// Level is the minimum level logged to both outputs
	Level zapcore.Level

	// File controls rotation of FilePath
	File FileWriterConfig
}

// Logger wraps zap.Logger with a level that can be changed at runtime.
//
// Example:
//
//	logger, err := logging.NewLogger(logging.Config{FilePath: "sysmon.log", Level: logging.InfoLevel})
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//	logger.Info("sampler started", zap.Duration("interval", time.Second))
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger
	level zap.AtomicLevel

	isDevelopment bool
	logFilePath   string
}

// NewLogger creates a logger writing to stdout and, when configured, a
// rotated file.
func NewLogger(config Config) (*Logger, error) {
	level := zap.NewAtomicLevelAt(config.Level)

	var file zapcore.WriteSyncer
	if config.FilePath != "" {
		if err := checkWritable(config.FilePath); err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = NewFileWriterWithConfig(config.FilePath, config.File)
	}

	core := NewMultiCoreWithWriters(level, zapcore.Lock(os.Stdout), file, config.Development)
	return newLogger(core, level, config.Development, config.FilePath), nil
}

// NewLoggerWithCore wraps an existing core, for tests and embedding.
func NewLoggerWithCore(core zapcore.Core) *Logger {
	return newLogger(core, zap.NewAtomicLevelAt(zapcore.DebugLevel), false, "")
}

func newLogger(core zapcore.Core, level zap.AtomicLevel, dev bool, path string) *Logger {
	z := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return &Logger{
		zap:           z,
		sugar:         z.Sugar(),
		level:         level,
		isDevelopment: dev,
		logFilePath:   path,
	}
}

// checkWritable fails early when the log file cannot be created, instead of
// on the first write inside lumberjack.
func checkWritable(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Sync flushes buffered entries. Syncing a terminal stdout fails on some
// platforms; that error is ignored.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	if err := l.zap.Sync(); err != nil && !isStdoutSyncError(err) {
		return err
	}
	return nil
}

func isStdoutSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") ||
		strings.Contains(msg, "inappropriate ioctl") ||
		strings.Contains(msg, "bad file descriptor")
}

// Debug logs at DebugLevel.
func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }

// Info logs at InfoLevel.
func (l *Logger) Info(msg string, fields ...zap.Field) { l.zap.Info(msg, fields...) }

// Warn logs at WarnLevel.
func (l *Logger) Warn(msg string, fields ...zap.Field) { l.zap.Warn(msg, fields...) }

// Error logs at ErrorLevel.
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }

// Fatal logs at FatalLevel then exits.
func (l *Logger) Fatal(msg string, fields ...zap.Field) { l.zap.Fatal(msg, fields...) }

// Infow logs at InfoLevel with loosely-typed key-value pairs.
func (l *Logger) Infow(msg string, keysAndValues ...any) { l.sugar.Infow(msg, keysAndValues...) }

// Warnw logs at WarnLevel with loosely-typed key-value pairs.
func (l *Logger) Warnw(msg string, keysAndValues ...any) { l.sugar.Warnw(msg, keysAndValues...) }

// Infof logs a formatted message at InfoLevel.
func (l *Logger) Infof(template string, args ...any) { l.sugar.Infof(template, args...) }

// With returns a child logger carrying fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return l.derive(l.zap.With(fields...))
}

// Named returns a child logger with a name segment.
func (l *Logger) Named(name string) *Logger {
	return l.derive(l.zap.Named(name))
}

// WithOptions returns a child logger with extra zap options.
func (l *Logger) WithOptions(opts ...zap.Option) *Logger {
	return l.derive(l.zap.WithOptions(opts...))
}

func (l *Logger) derive(z *zap.Logger) *Logger {
	return &Logger{
		zap:           z,
		sugar:         z.Sugar(),
		level:         l.level,
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

// SetLevel changes the minimum level of this logger and every child.
func (l *Logger) SetLevel(level zapcore.Level) {
	l.level.SetLevel(level)
}

// Level returns the current minimum level.
func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

// Zap returns the underlying zap.Logger.
func (l *Logger) Zap() *zap.Logger { return l.zap }

// Sugar returns the underlying sugared logger.
func (l *Logger) Sugar() *zap.SugaredLogger { return l.sugar }

// IsDevelopment reports whether the logger runs in development mode.
func (l *Logger) IsDevelopment() bool { return l.isDevelopment }

// LogFilePath returns the log file path, empty when file output is off.
func (l *Logger) LogFilePath() string { return l.logFilePath }
