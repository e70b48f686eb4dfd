package db

import (
	"context"
	"path/filepath"
	"testing"
)

func tableExists(t *testing.T, path, table string) bool {
	t.Helper()
	conn, err := NewSQLiteConnection(context.Background(), DefaultConnectionConfig(path))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer conn.Close()

	var n int
	err = conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n)
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrateUp(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	if err := MigrateUp(ctx, path); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if !tableExists(t, path, "slot_events") {
		t.Error("expected slot_events table after migration")
	}

	version, dirty, err := MigrationVersion(ctx, path)
	if err != nil {
		t.Fatalf("MigrationVersion() error = %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("version = %d dirty = %v, want 1 false", version, dirty)
	}

	t.Run("no change is not an error", func(t *testing.T) {
		if err := MigrateUp(ctx, path); err != nil {
			t.Errorf("second MigrateUp() error = %v", err)
		}
	})
}

func TestMigrateDown(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	if err := MigrateUp(ctx, path); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if err := MigrateDown(ctx, path, -1); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, path, "slot_events") {
		t.Error("expected slot_events dropped after rollback")
	}

	version, _, err := MigrationVersion(ctx, path)
	if err != nil {
		t.Fatalf("MigrationVersion() error = %v", err)
	}
	if version != 0 {
		t.Errorf("version = %d, want 0", version)
	}

	if err := MigrateDown(ctx, path, -1); err != nil {
		t.Errorf("rollback with nothing applied error = %v", err)
	}
}

func TestMigrationVersion_Fresh(t *testing.T) {
	version, dirty, err := MigrationVersion(context.Background(), filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatalf("MigrationVersion() error = %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("version = %d dirty = %v, want 0 false", version, dirty)
	}
}
