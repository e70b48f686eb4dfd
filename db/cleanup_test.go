package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func insertAgedEvents(t *testing.T, database *Database, ageInDays, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		_, err := database.ExecContext(context.Background(), `
			INSERT INTO slot_events (session_id, kind, tick, slot, thread_handle, thread_id, occurred_at, created_at)
			VALUES ('test', 'allocated', ?, 0, 1, 1, 0, datetime('now', ?))`,
			i, fmt.Sprintf("-%d days", ageInDays))
		if err != nil {
			t.Fatalf("failed to insert event: %v", err)
		}
	}
}

func countEvents(t *testing.T, database *Database) int {
	t.Helper()
	rows, err := database.QueryContext(context.Background(), "SELECT COUNT(*) FROM slot_events")
	if err != nil {
		t.Fatalf("failed to count events: %v", err)
	}
	defer rows.Close()
	var n int
	rows.Next()
	if err := rows.Scan(&n); err != nil {
		t.Fatalf("failed to scan count: %v", err)
	}
	return n
}

func TestCleanup(t *testing.T) {
	database := openTestDatabase(t)
	insertAgedEvents(t, database, 10, 3)
	insertAgedEvents(t, database, 1, 2)

	result, err := database.Cleanup(context.Background(), 7)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if result.Deleted != 3 {
		t.Errorf("Deleted = %d, want 3", result.Deleted)
	}
	if got := countEvents(t, database); got != 2 {
		t.Errorf("remaining = %d, want 2", got)
	}
}

func TestCleanup_InvalidInput(t *testing.T) {
	database := openTestDatabase(t)

	if _, err := database.Cleanup(context.Background(), -1); err == nil {
		t.Error("expected error for negative retention")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := database.Cleanup(ctx, 7); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	database.Close()
	if _, err := database.Cleanup(context.Background(), 7); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestStartCleanupScheduler(t *testing.T) {
	database := openTestDatabase(t)
	insertAgedEvents(t, database, 30, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var results []CleanupResult
	done := make(chan struct{}, 1)

	database.StartCleanupScheduler(ctx, 7, time.Hour, func(result CleanupResult, err error) {
		if err != nil {
			t.Errorf("scheduled cleanup error = %v", err)
		}
		mu.Lock()
		results = append(results, result)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("initial cleanup did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 1 || results[0].Deleted != 4 {
		t.Errorf("expected one run deleting 4 rows, got %+v", results)
	}
}
