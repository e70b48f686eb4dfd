package shutdown

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"sysmon/core"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestManager_TeardownOrder(t *testing.T) {
	manager := NewManager(zap.NewNop(), WithTimeout(2*time.Second))

	var order []string
	for _, h := range []struct {
		name     string
		priority int
	}{
		{"logger", PriorityLogger},
		{"sampler", PrioritySampler},
		{"storage", PriorityStorage},
		{"journal", PriorityJournal},
	} {
		name := h.name
		manager.Register(name, h.priority, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := manager.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	expected := []string{"sampler", "journal", "storage", "logger"}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("expected %v, got %v", expected, order)
			break
		}
	}
	if manager.Context().Err() == nil {
		t.Error("expected context cancelled by shutdown")
	}
	if manager.Shutdown() != nil {
		t.Error("expected second shutdown to be a no-op")
	}
}

func TestManager_WaitsForOperations(t *testing.T) {
	manager := NewManager(zap.NewNop(), WithTimeout(2*time.Second))

	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		manager.WrapOperation(context.Background(), "textfile", func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
		close(finished)
	}()
	<-started

	hookRan := make(chan bool, 1)
	manager.Register("journal", PriorityJournal, func(ctx context.Context) error {
		select {
		case <-finished:
			hookRan <- true
		default:
			hookRan <- false
		}
		return nil
	})

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	manager.Shutdown()

	if !<-hookRan {
		t.Error("expected hook to run after the in-flight operation finished")
	}

	err := manager.WrapOperation(context.Background(), "late", func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrTrackerClosed) {
		t.Errorf("expected ErrTrackerClosed, got %v", err)
	}
}

func TestManager_HookFailure(t *testing.T) {
	obsCore, logs := observer.New(zap.ErrorLevel)
	manager := NewManager(zap.New(obsCore))
	manager.Register("storage", PriorityStorage, func(ctx context.Context) error {
		return errors.New("locked")
	})

	err := manager.Shutdown()
	if err == nil {
		t.Fatal("expected shutdown error")
	}
	if logs.FilterMessage("Shutdown handler failed").Len() != 1 {
		t.Errorf("expected failure logged, got %d entries", logs.Len())
	}
	if code := manager.ExitCode(err); code != core.ExitCodeError {
		t.Errorf("expected exit code 1, got %d", code)
	}
}

func TestManager_SignalHandling(t *testing.T) {
	exitCode := -1
	manager := NewManager(zap.NewNop(), WithExitFunc(func(code int) { exitCode = code }))

	manager.HandleSignal(syscall.SIGTERM)
	select {
	case <-manager.Context().Done():
	default:
		t.Fatal("expected context cancelled by signal")
	}
	if exitCode != -1 {
		t.Error("expected no forced exit after first signal")
	}

	manager.HandleSignal(os.Interrupt)
	if exitCode != 1 {
		t.Errorf("expected forced exit 1, got %d", exitCode)
	}

	if code := manager.ExitCode(manager.Shutdown()); code != 143 {
		t.Errorf("expected 143, got %d", code)
	}
}

func TestManager_CancelAndExitCode(t *testing.T) {
	manager := NewManager(nil)
	manager.Cancel()
	manager.Wait()

	if manager.IsShuttingDown() {
		t.Error("expected cancel alone not to run shutdown")
	}
	if code := manager.ExitCode(nil); code != core.ExitCodeSuccess {
		t.Errorf("expected success exit code, got %d", code)
	}
}

func TestManager_TeardownLogs(t *testing.T) {
	obsCore, logs := observer.New(zap.InfoLevel)
	manager := NewManager(zap.New(obsCore), WithTimeout(2*time.Second))
	manager.Register("logger", PriorityLogger, func(ctx context.Context) error { return nil })
	manager.Register("sampler", PrioritySampler, func(ctx context.Context) error { return nil })

	manager.WrapOperation(context.Background(), "summary", func(context.Context) error { return nil })

	if err := manager.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	entries := logs.FilterMessage("Shutting down").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 shutting down entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	handlers, ok := fields["handlers"].([]interface{})
	if !ok || len(handlers) != 2 || handlers[0] != "sampler" || handlers[1] != "logger" {
		t.Errorf("expected handlers [sampler logger], got %v", fields["handlers"])
	}
	if fields["active_operations"] != int64(0) {
		t.Errorf("expected 0 active operations, got %v", fields["active_operations"])
	}

	done := logs.FilterMessage("Shutdown complete").All()
	if len(done) != 1 || done[0].ContextMap()["operations_run"] != int64(1) {
		t.Errorf("expected operations_run 1 in completion log, got %v", done)
	}

	manager.HandleSignal(syscall.SIGTERM)
	if logs.FilterMessage("Received signal during shutdown").Len() != 1 {
		t.Error("expected signal after teardown logged as arriving during shutdown")
	}
	if code := manager.ExitCode(nil); code != core.ExitCodeSIGTERM {
		t.Errorf("expected %d, got %d", core.ExitCodeSIGTERM, code)
	}
}
