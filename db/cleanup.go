package db

import (
	"context"
	"fmt"
	"time"
)

// CleanupResult contains statistics about a cleanup run.
type CleanupResult struct {
	// Deleted is the number of journal rows removed
	Deleted int64
	// Duration is how long the cleanup took
	Duration time.Duration
}

// Cleanup deletes journal rows older than retentionDays and vacuums the file.
// A VACUUM failure after a successful delete is returned with the result
// populated.
func (d *Database) Cleanup(ctx context.Context, retentionDays int) (CleanupResult, error) {
	start := time.Now()
	result := CleanupResult{}

	if retentionDays < 0 {
		return result, fmt.Errorf("retentionDays must be non-negative, got %d", retentionDays)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return result, ErrClosed
	}

	cutoff := fmt.Sprintf("-%d days", retentionDays)
	res, err := d.db.ExecContext(ctx,
		"DELETE FROM slot_events WHERE created_at < datetime('now', ?)", cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to delete from slot_events: %w", err)
	}
	if result.Deleted, err = res.RowsAffected(); err != nil {
		return result, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if ctx.Err() != nil {
		result.Duration = time.Since(start)
		return result, ctx.Err()
	}

	if _, err := d.db.ExecContext(ctx, "VACUUM"); err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("cleanup succeeded but VACUUM failed: %w", err)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// StartCleanupScheduler runs Cleanup immediately and then every interval
// until ctx is cancelled. onCleanup, if non-nil, receives each outcome.
func (d *Database) StartCleanupScheduler(ctx context.Context, retentionDays int, interval time.Duration,
	onCleanup func(CleanupResult, error)) {
	go func() {
		run := func() {
			result, err := d.Cleanup(ctx, retentionDays)
			if onCleanup != nil {
				onCleanup(result, err)
			}
		}
		run()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}
