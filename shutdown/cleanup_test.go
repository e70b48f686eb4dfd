package shutdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestRemoveExportTemps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sysmon.prom")
	for _, name := range []string{"sysmon.prom", "sysmon.prom123456", "sysmon.prom987", "other.prom"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	if err := RemoveExportTemps(zap.NewNop(), path)(context.Background()); err != nil {
		t.Fatalf("hook returned error: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 2 || names[0] != "other.prom" || names[1] != "sysmon.prom" {
		t.Errorf("expected export and unrelated file kept, got %v", names)
	}
}

func TestRemoveExportTemps_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sysmon.prom")
	os.WriteFile(path+"1", []byte("x"), 0644)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if n := removeExportTemps(ctx, zap.NewNop(), path); n != 0 {
		t.Errorf("expected nothing removed after cancel, got %d", n)
	}
	if err := RemoveExportTemps(zap.NewNop(), "")(context.Background()); err != nil {
		t.Errorf("expected empty path to be a no-op, got %v", err)
	}
}
