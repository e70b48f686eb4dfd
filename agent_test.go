package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sysmon/core"
	"sysmon/db"
	"sysmon/stackreg"
)

func simEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SYSMON_CONFIG_FILE", "")
	t.Setenv("SYSMON_SOURCE", "sim")
	t.Setenv("SYSMON_SAMPLE_INTERVAL_MS", "20")
	t.Setenv("SYSMON_NUM_CORES", "2")
	t.Setenv("SYSMON_MONITOR_CORE", "-1")
	t.Setenv("SYSMON_SUMMARY_EVERY", "2")
	t.Setenv("SYSMON_LOG_FILE", filepath.Join(dir, "sysmon.log"))
	t.Setenv("SYSMON_LOG_LEVEL", "warn")
	t.Setenv("SYSMON_JOURNAL_PATH", filepath.Join(dir, "data", "journal.db"))
	t.Setenv("SYSMON_JOURNAL_MIN_FREE", "1")
	t.Setenv("SYSMON_TEXTFILE_PATH", filepath.Join(dir, "export", "sysmon.prom"))
	t.Setenv("SYSMON_TEXTFILE_INTERVAL_MS", "100")
	return dir
}

func TestRunAgent_Simulated(t *testing.T) {
	dir := simEnv(t)

	stop := make(chan struct{})
	codes := make(chan int, 1)
	go func() {
		codes <- runAgent(stop, false)
	}()

	time.Sleep(400 * time.Millisecond)
	close(stop)

	select {
	case code := <-codes:
		if code != core.ExitCodeSuccess {
			t.Fatalf("expected exit code 0, got %d (%s)", code, core.ExitCodeName(code))
		}
	case <-time.After(10 * time.Second):
		t.Fatal("agent did not stop")
	}

	data, err := os.ReadFile(filepath.Join(dir, "export", "sysmon.prom"))
	if err != nil {
		t.Fatalf("expected textfile export: %v", err)
	}
	if !strings.Contains(string(data), "sysmon_thread_cpu_percent") {
		t.Errorf("expected thread metrics in export, got:\n%s", data)
	}

	database, err := db.Open(context.Background(), filepath.Join(dir, "data", "journal.db"))
	if err != nil {
		t.Fatalf("failed to reopen journal: %v", err)
	}
	defer database.Close()

	var count int
	rows, err := database.QueryContext(context.Background(), "SELECT COUNT(*) FROM slot_events WHERE kind = 'allocated'")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}
	if count == 0 {
		t.Error("expected allocation events journaled")
	}
}

func TestRunAgent_InvalidConfig(t *testing.T) {
	simEnv(t)
	t.Setenv("SYSMON_WORD_SIZE", "3")

	if code := runAgent(nil, false); code != core.ExitCodeConfig {
		t.Errorf("expected exit code %d, got %d", core.ExitCodeConfig, code)
	}
}

func TestRunAgent_ValidationFailureLogged(t *testing.T) {
	dir := simEnv(t)
	t.Setenv("SYSMON_JOURNAL_MIN_FREE", "1000000G")

	if code := runAgent(nil, false); code != core.ExitCodeConfig {
		t.Fatalf("expected exit code %d, got %d", core.ExitCodeConfig, code)
	}

	data, err := os.ReadFile(filepath.Join(dir, "sysmon.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	log := string(data)
	if !strings.Contains(log, "Startup validation failed") {
		t.Errorf("expected validation failure in log, got:\n%s", log)
	}
	if !strings.Contains(log, `"reason":"invalid configuration"`) {
		t.Errorf("expected exit reason in log, got:\n%s", log)
	}
	if !strings.Contains(log, `"signal":false`) {
		t.Errorf("expected non-signal exit in log, got:\n%s", log)
	}
}

func TestOpenSource(t *testing.T) {
	config := core.DefaultConfig()
	config.Source = core.SourceSim
	config.NumCores = 2

	stacks := stackreg.New(0, nil)
	sched, host, err := openSource(config, stacks)
	if err != nil {
		t.Fatalf("openSource() error = %v", err)
	}
	if sched == nil || host == nil {
		t.Fatal("expected both providers")
	}
	if stacks.Len() == 0 {
		t.Error("expected simulator to register stacks")
	}

	if err := sourceProbe(config, sched, host)(context.Background()); err != nil {
		t.Errorf("expected probe to pass, got %v", err)
	}

	config.Source = "kernel"
	if _, _, err := openSource(config, stacks); core.GetErrorCode(err) != core.ErrCodeInvalidValue {
		t.Errorf("expected invalid value error, got %v", err)
	}
}

func TestSamplerConfig(t *testing.T) {
	config := core.DefaultConfig()
	config.MaxTrackedTasks = 77
	config.MonitorCore = -1

	sc := samplerConfig(config)
	if sc.MaxCapacity != 77 || sc.MonitorCore != -1 || sc.SampleCount != config.SampleCount {
		t.Errorf("unexpected mapping %+v", sc)
	}
}
