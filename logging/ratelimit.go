package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sampled returns a child logger that, per message and level, logs the
// first `first` entries in each tick window and then every `thereafter`-th.
//
// The sampling loop uses it so a provider that fails every tick does not
// flood the log. thereafter of 0 drops everything after `first`.
func (l *Logger) Sampled(tick time.Duration, first, thereafter int) *Logger {
	return l.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewSamplerWithOptions(core, tick, first, thereafter)
	}))
}
