package validation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "present.txt")
	os.WriteFile(file, []byte("x"), 0644)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"existing file", file, false},
		{"missing file", filepath.Join(dir, "missing.txt"), true},
		{"directory", dir, true},
		{"empty path", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFileExists(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCheckDirWritable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "journal.db")

	if err := CheckDirWritable(path); err != nil {
		t.Fatalf("expected writable, got %v", err)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("expected directory created: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 0 {
		t.Errorf("expected probe file removed, found %d entries", len(entries))
	}

	if err := CheckDirWritable(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestGetDiskSpace(t *testing.T) {
	dir := t.TempDir()
	info, err := GetDiskSpace(filepath.Join(dir, "not", "yet", "created.db"))
	if err != nil {
		t.Fatalf("GetDiskSpace() error = %v", err)
	}
	if info.Path != dir {
		t.Errorf("expected walk up to %s, got %s", dir, info.Path)
	}
	if info.Total == 0 {
		t.Error("expected non-zero total")
	}
	if info.UsedPercent < 0 || info.UsedPercent > 100 {
		t.Errorf("expected percent in range, got %f", info.UsedPercent)
	}
}
