package shutdown

import (
	"context"
	"os"
	"path/filepath"

	"sysmon/core"

	"go.uber.org/zap"
)

// RemoveExportTemps returns a hook that deletes temporary files left next
// to an export file by interrupted atomic writes. Prometheus textfile
// writes create "<base><random>" siblings before renaming over path; the
// export file itself is kept. Failures are logged, never returned.
func RemoveExportTemps(logger *zap.Logger, path string) core.ShutdownFunc {
	return func(ctx context.Context) error {
		if path == "" {
			return nil
		}
		removeExportTemps(ctx, logger, path)
		return nil
	}
}

func removeExportTemps(ctx context.Context, logger *zap.Logger, path string) int {
	pattern := filepath.Join(filepath.Dir(path), filepath.Base(path)+"*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		logger.Warn("Failed to list export temp files", zap.String("pattern", pattern), zap.Error(err))
		return 0
	}

	removed := 0
	for _, match := range matches {
		if match == path {
			continue
		}
		if ctx.Err() != nil {
			logger.Warn("Shutdown deadline reached during temp cleanup", zap.Int("removed", removed))
			return removed
		}
		if err := os.Remove(match); err != nil {
			logger.Warn("Failed to remove export temp file",
				zap.String("file", filepath.Base(match)), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Info("Removed export temp files", zap.String("dir", filepath.Dir(path)), zap.Int("count", removed))
	}
	return removed
}
