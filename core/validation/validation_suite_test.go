package validation

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"sysmon/core"
)

func validConfig(t *testing.T) *core.Config {
	t.Helper()
	config := core.DefaultConfig()
	config.NumCores = 2
	config.MonitorCore = -1
	config.JournalMinFree = 1
	return config
}

func okProbe(ctx context.Context) error { return nil }

func TestValidationSuite_AllPassed(t *testing.T) {
	dir := t.TempDir()
	config := validConfig(t)
	config.JournalPath = filepath.Join(dir, "data", "journal.db")
	config.TextfilePath = filepath.Join(dir, "export", "sysmon.prom")

	var buf bytes.Buffer
	result := NewValidationSuite(config).
		WithOutput(&buf).
		WithEnvPath(filepath.Join(dir, ".env")).
		WithSourceProbe(okProbe).
		Validate()

	if !result.Success {
		t.Fatalf("expected success, got %s: %v", result.Summary(), result.GetErrors())
	}
	if result.TotalSteps != 5 {
		t.Errorf("expected 5 steps, got %d", result.TotalSteps)
	}
	// missing .env is only a warning
	if result.Warnings != 1 || result.Steps[0].Status != StepWarning {
		t.Errorf("expected env file warning, got %+v", result.Steps[0])
	}
	if !strings.Contains(buf.String(), "Validation Passed") {
		t.Errorf("expected passed summary in output, got:\n%s", buf.String())
	}
}

func TestValidationSuite_SkipsDisabledOutputs(t *testing.T) {
	result := NewValidationSuite(validConfig(t)).
		WithShowProgress(false).
		WithSourceProbe(okProbe).
		Validate()

	if !result.Success {
		t.Fatalf("expected success, got %v", result.GetErrors())
	}
	for _, name := range []string{"Journal Storage", "Textfile Export"} {
		found := false
		for _, step := range result.Steps {
			if step.Name == name {
				found = true
				if step.Status != StepSkipped {
					t.Errorf("expected %s skipped, got %s", name, step.Status)
				}
			}
		}
		if !found {
			t.Errorf("expected step %s", name)
		}
	}
}

func TestValidationSuite_InvalidConfigSkipsProbe(t *testing.T) {
	config := validConfig(t)
	config.WordSize = 3

	probed := false
	result := NewValidationSuite(config).
		WithShowProgress(false).
		WithSourceProbe(func(ctx context.Context) error { probed = true; return nil }).
		Validate()

	if result.Success {
		t.Fatal("expected failure")
	}
	if probed {
		t.Error("expected probe not to run on invalid config")
	}
	if core.GetErrorCode(result.GetFirstError()) != core.ErrCodeInvalidValue {
		t.Errorf("expected invalid value error, got %v", result.GetFirstError())
	}
	if result.Steps[2].Status != StepSkipped {
		t.Errorf("expected thread source skipped, got %s", result.Steps[2].Status)
	}
}

func TestValidationSuite_ProbeFailure(t *testing.T) {
	var buf bytes.Buffer
	result := NewValidationSuite(validConfig(t)).
		WithOutput(&buf).
		WithSourceProbe(func(ctx context.Context) error { return errors.New("no such process") }).
		Validate()

	if result.Success {
		t.Fatal("expected failure")
	}
	if core.GetErrorCode(result.GetFirstError()) != core.ErrCodeSourceFailed {
		t.Errorf("expected source error, got %v", result.GetFirstError())
	}
	if !strings.Contains(buf.String(), "no such process") {
		t.Errorf("expected error detail in output, got:\n%s", buf.String())
	}
}

func TestValidationSuite_FailFast(t *testing.T) {
	config := validConfig(t)
	config.SampleCount = 0

	result := NewValidationSuite(config).
		WithShowProgress(false).
		WithFailFast(true).
		Validate()

	if result.TotalSteps != 2 {
		t.Errorf("expected validation to stop after 2 steps, got %d", result.TotalSteps)
	}
}

func TestConfigValidator_JournalDiskSpace(t *testing.T) {
	config := validConfig(t)
	config.JournalPath = filepath.Join(t.TempDir(), "journal.db")
	config.JournalMinFree = 1 << 62

	result := NewConfigValidator(config).CheckJournal()
	if result.Valid {
		t.Fatal("expected insufficient space")
	}
	var diskErr *DiskSpaceError
	if !errors.As(result.Error, &diskErr) {
		t.Fatalf("expected DiskSpaceError, got %T", result.Error)
	}
	if diskErr.Required != 1<<62 {
		t.Errorf("expected required %d, got %d", uint64(1<<62), diskErr.Required)
	}
}

func TestSuiteResult_Summary(t *testing.T) {
	result := SuiteResult{TotalSteps: 3, PassedSteps: 2, FailedSteps: 1, Warnings: 0}
	if !strings.Contains(result.Summary(), "Validation Failed: 2/3 checks passed, 1 failed") {
		t.Errorf("unexpected summary %q", result.Summary())
	}
}
