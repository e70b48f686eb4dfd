package main

import (
	"testing"

	"sysmon/core"

	"github.com/kardianos/service"
)

func TestServiceConfig(t *testing.T) {
	config := serviceConfig()
	if config.Name != "sysmon" {
		t.Errorf("expected name sysmon, got %s", config.Name)
	}
	if len(config.Arguments) != 1 || config.Arguments[0] != "run" {
		t.Errorf("expected service to start with run, got %v", config.Arguments)
	}
}

func TestStatusName(t *testing.T) {
	tests := []struct {
		status   service.Status
		expected string
	}{
		{service.StatusRunning, "running"},
		{service.StatusStopped, "stopped"},
		{service.StatusUnknown, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := statusName(tt.status); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestProgram_StartStop(t *testing.T) {
	simEnv(t)
	p := newProgram()
	if err := p.Start(nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Stop(nil); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestDispatch(t *testing.T) {
	if code := dispatch("version"); code != core.ExitCodeSuccess {
		t.Errorf("expected success for version, got %d", code)
	}
	if code := dispatch("frobnicate"); code != core.ExitCodeConfig {
		t.Errorf("expected config exit for unknown command, got %d", code)
	}
}
