package core

import (
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("SYSMON_TEST_STR", "  value ")
	if got := GetEnvOrDefault("SYSMON_TEST_STR", "def"); got != "value" {
		t.Errorf("expected trimmed value, got %q", got)
	}
	t.Setenv("SYSMON_TEST_STR", "   ")
	if got := GetEnvOrDefault("SYSMON_TEST_STR", "def"); got != "def" {
		t.Errorf("expected default for blank value, got %q", got)
	}
}

func TestParseIntEnv(t *testing.T) {
	tests := []struct {
		value    string
		expected int
	}{
		{"", 7},
		{"42", 42},
		{"-1", -1},
		{"abc", 7},
		{"4.5", 7},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("SYSMON_TEST_INT", tt.value)
			if got := ParseIntEnv("SYSMON_TEST_INT", 7); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value    string
		def      bool
		expected bool
	}{
		{"true", false, true},
		{"ON", false, true},
		{"1", false, true},
		{"no", true, false},
		{"0", true, false},
		{"maybe", true, true},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("SYSMON_TEST_BOOL", tt.value)
			if got := ParseBoolEnv("SYSMON_TEST_BOOL", tt.def); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestParseDurationMsEnv(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Duration
	}{
		{"", time.Second},
		{"250", 250 * time.Millisecond},
		{"2s", 2 * time.Second},
		{"soon", time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("SYSMON_TEST_MS", tt.value)
			if got := ParseDurationMsEnv("SYSMON_TEST_MS", time.Second); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestParseBytesEnv(t *testing.T) {
	t.Setenv("SYSMON_TEST_BYTES", "16KB")
	if got := ParseBytesEnv("SYSMON_TEST_BYTES", 1); got != 16*BytesPerKB {
		t.Errorf("expected 16KB, got %d", got)
	}
	t.Setenv("SYSMON_TEST_BYTES", "lots")
	if got := ParseBytesEnv("SYSMON_TEST_BYTES", 1); got != 1 {
		t.Errorf("expected default, got %d", got)
	}
}
