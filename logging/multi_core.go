package logging

import (
	"go.uber.org/zap/zapcore"
)

// NewMultiCoreWithWriters tees entries to a console writer and a file writer.
//
// The file always receives JSON. The console receives colored text in
// development and JSON otherwise. A nil fileWriter yields a console-only core.
//
// Example:
//
//	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
//	core := NewMultiCoreWithWriters(level, zapcore.Lock(os.Stdout), NewFileWriter("sysmon.log"), false)
//	logger := zap.New(core)
func NewMultiCoreWithWriters(level zapcore.LevelEnabler, consoleWriter, fileWriter zapcore.WriteSyncer, isDev bool) zapcore.Core {
	consoleCore := zapcore.NewCore(newEncoder(isDev), consoleWriter, level)
	if fileWriter == nil {
		return consoleCore
	}

	fileCore := zapcore.NewCore(newEncoder(false), fileWriter, level)
	return zapcore.NewTee(consoleCore, fileCore)
}

// NewMultiCore tees to consoleWriter and a rotated file at filePath using
// the default rotation settings.
func NewMultiCore(level zapcore.LevelEnabler, consoleWriter zapcore.WriteSyncer, filePath string, isDev bool) zapcore.Core {
	var file zapcore.WriteSyncer
	if filePath != "" {
		file = NewFileWriter(filePath)
	}
	return NewMultiCoreWithWriters(level, consoleWriter, file, isDev)
}

func newEncoder(console bool) zapcore.Encoder {
	if console {
		return zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	}
	return zapcore.NewJSONEncoder(NewEncoderConfig())
}
