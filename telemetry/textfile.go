package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// NewRegistry returns a registry holding collector only, so exports carry
// sysmon metrics and nothing from the default Go collectors.
func NewRegistry(collector prometheus.Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collector); err != nil {
		return nil, fmt.Errorf("register collector: %w", err)
	}
	return reg, nil
}

// WriteTextfile gathers reg and writes it atomically in the node_exporter
// textfile format.
func WriteTextfile(path string, reg prometheus.Gatherer) error {
	if path == "" {
		return fmt.Errorf("textfile path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create textfile directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write textfile %s: %w", path, err)
	}
	return nil
}

// TextfileExporter rewrites a textfile on a fixed interval.
type TextfileExporter struct {
	path     string
	reg      prometheus.Gatherer
	interval time.Duration
	logger   *zap.Logger

	// wrap runs each export; main uses it to track exports for shutdown
	wrap func(ctx context.Context, fn func() error) error
}

// NewTextfileExporter creates an exporter. wrap may be nil.
func NewTextfileExporter(path string, reg prometheus.Gatherer, interval time.Duration, logger *zap.Logger,
	wrap func(ctx context.Context, fn func() error) error) *TextfileExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if wrap == nil {
		wrap = func(_ context.Context, fn func() error) error { return fn() }
	}
	return &TextfileExporter{path: path, reg: reg, interval: interval, logger: logger, wrap: wrap}
}

// Run exports until ctx is cancelled, writing once more on the way out.
func (e *TextfileExporter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := WriteTextfile(e.path, e.reg); err != nil {
				e.logger.Warn("Final textfile export failed", zap.Error(err))
			}
			return
		case <-ticker.C:
			err := e.wrap(ctx, func() error { return WriteTextfile(e.path, e.reg) })
			if err != nil {
				e.logger.Warn("Textfile export failed", zap.String("path", e.path), zap.Error(err))
			}
		}
	}
}
