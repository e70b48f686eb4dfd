package logging

import (
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestEncoderConfigs(t *testing.T) {
	jsonCfg := NewEncoderConfig()
	consoleCfg := NewConsoleEncoderConfig()

	for name, cfg := range map[string]zapcore.EncoderConfig{"json": jsonCfg, "console": consoleCfg} {
		if cfg.MessageKey != FieldMessage || cfg.TimeKey != FieldTimestamp || cfg.NameKey != FieldLogger {
			t.Errorf("%s: unexpected keys %+v", name, cfg)
		}
	}

	enc := zapcore.NewMapObjectEncoder()
	if err := enc.AddArray("t", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
		shortTimeEncoder(time.Date(2024, 1, 2, 13, 4, 5, 6_000_000, time.UTC), ae)
		return nil
	})); err != nil {
		t.Fatalf("AddArray() error = %v", err)
	}
	got := enc.Fields["t"].([]any)[0]
	if got != "13:04:05.006" {
		t.Errorf("expected 13:04:05.006, got %v", got)
	}
}
