package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
	if config.SampleInterval != time.Second {
		t.Errorf("expected 1s interval, got %v", config.SampleInterval)
	}
	if config.Source != SourceProc {
		t.Errorf("expected proc source, got %s", config.Source)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("SYSMON_CONFIG_FILE", "")
	t.Setenv("SYSMON_SAMPLE_INTERVAL_MS", "250")
	t.Setenv("SYSMON_SAMPLE_COUNT", "120")
	t.Setenv("SYSMON_MAX_TRACKED_TASKS", "64")
	t.Setenv("SYSMON_MONITOR_CORE", "-1")
	t.Setenv("SYSMON_SOURCE", "SIM")
	t.Setenv("SYSMON_JOURNAL_MIN_FREE", "1MB")
	t.Setenv("DEV_MODE", "yes")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.SampleInterval != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", config.SampleInterval)
	}
	if config.SampleCount != 120 || config.MaxTrackedTasks != 64 || config.MonitorCore != -1 {
		t.Errorf("unexpected sampler settings: %+v", config)
	}
	if config.Source != SourceSim {
		t.Errorf("expected source lowercased to sim, got %s", config.Source)
	}
	if config.JournalMinFree != BytesPerMB {
		t.Errorf("expected 1MB min free, got %d", config.JournalMinFree)
	}
	if !config.DevMode {
		t.Error("expected dev mode")
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sysmon.yaml")
	content := `
sampler:
  interval: 500ms
  sample_count: 30
  monitor_core: -1
source:
  kind: sim
journal:
  path: /tmp/journal.db
  min_free: 2MB
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("SYSMON_CONFIG_FILE", path)
	t.Setenv("SYSMON_SAMPLE_COUNT", "90")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.SampleInterval != 500*time.Millisecond {
		t.Errorf("expected file interval 500ms, got %v", config.SampleInterval)
	}
	if config.SampleCount != 90 {
		t.Errorf("expected env to override sample count, got %d", config.SampleCount)
	}
	if config.Source != SourceSim || config.JournalPath != "/tmp/journal.db" || config.LogLevel != "debug" {
		t.Errorf("unexpected file settings: %+v", config)
	}
	if config.JournalMinFree != 2*BytesPerMB {
		t.Errorf("expected 2MB, got %d", config.JournalMinFree)
	}
	// keys absent from the file keep defaults
	if config.InitialCapacity != 32 {
		t.Errorf("expected default initial capacity, got %d", config.InitialCapacity)
	}
}

func TestLoadConfigFile_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "sampler: [unclosed"},
		{"bad duration", "sampler:\n  interval: soon\n"},
		{"bad size", "journal:\n  min_free: lots\n"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "c"+string(rune('a'+i))+".yaml")
			os.WriteFile(path, []byte(tt.content), 0644)
			_, err := LoadConfigFile(path)
			if GetErrorCode(err) != ErrCodeConfigFile {
				t.Errorf("expected %s, got %v", ErrCodeConfigFile, err)
			}
		})
	}

	if _, err := LoadConfigFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"interval too short", func(c *Config) { c.SampleInterval = 5 * time.Millisecond }, false},
		{"zero samples", func(c *Config) { c.SampleCount = 0 }, false},
		{"zero initial", func(c *Config) { c.InitialCapacity = 0 }, false},
		{"max below initial", func(c *Config) { c.InitialCapacity = 16; c.MaxTrackedTasks = 8 }, false},
		{"max equals initial", func(c *Config) { c.InitialCapacity = 8; c.MaxTrackedTasks = 8 }, true},
		{"negative threshold", func(c *Config) { c.EvictionThreshold = -1 }, false},
		{"zero threshold", func(c *Config) { c.EvictionThreshold = 0 }, true},
		{"zero name length", func(c *Config) { c.NameLength = 0 }, false},
		{"word size 3", func(c *Config) { c.WordSize = 3 }, false},
		{"word size 8", func(c *Config) { c.WordSize = 8 }, true},
		{"unpinned", func(c *Config) { c.MonitorCore = -1 }, true},
		{"core out of range", func(c *Config) { c.NumCores = 2; c.MonitorCore = 2 }, false},
		{"zero cores", func(c *Config) { c.NumCores = 0; c.MonitorCore = -1 }, false},
		{"unknown source", func(c *Config) { c.Source = "kernel" }, false},
		{"negative pid", func(c *Config) { c.TargetPID = -4 }, false},
		{"negative retention", func(c *Config) { c.JournalRetentionDays = -1 }, false},
		{"textfile interval too short", func(c *Config) { c.TextfilePath = "x.prom"; c.TextfileInterval = time.Millisecond }, false},
		{"negative summary", func(c *Config) { c.SummaryEvery = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.NumCores = 4
			tt.modify(config)
			err := config.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if GetErrorCode(err) != ErrCodeInvalidValue {
					t.Errorf("expected %s, got %s", ErrCodeInvalidValue, GetErrorCode(err))
				}
			}
		})
	}
}

func TestConfig_ResolvedPID(t *testing.T) {
	config := DefaultConfig()
	if config.ResolvedPID() != os.Getpid() {
		t.Errorf("expected own pid %d, got %d", os.Getpid(), config.ResolvedPID())
	}
	config.TargetPID = 42
	if config.ResolvedPID() != 42 {
		t.Errorf("expected 42, got %d", config.ResolvedPID())
	}
}
