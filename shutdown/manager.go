package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sysmon/core"

	"go.uber.org/zap"
)

// Manager ties the agent's teardown together. SIGINT/SIGTERM (or Cancel)
// cancels Context; Shutdown then stops accepting tracked operations, waits
// a bounded time for running ones, and runs the hooks in priority order.
//
//	manager := shutdown.NewManager(logger)
//	manager.Register("sampler", shutdown.PrioritySampler, stopSampler)
//	manager.Register("logger", shutdown.PriorityLogger, syncLogger)
//	manager.Start()
//	manager.Wait()
//	err := manager.Shutdown()
//	os.Exit(manager.ExitCode(err))
type Manager struct {
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	started  bool
	shutdown bool

	ctx    context.Context
	cancel context.CancelFunc

	tracker  *OperationTracker
	registry *ShutdownRegistry
	signals  *SignalCounter
	sigChan  chan os.Signal
	exit     func(code int)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout bounds the whole teardown. Default 30 seconds.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// WithExitFunc replaces os.Exit for the forced exit on a second signal.
func WithExitFunc(exit func(code int)) ManagerOption {
	return func(m *Manager) {
		m.exit = exit
	}
}

// NewManager creates a manager. A second signal forces exit with
// core.ExitCodeError.
func NewManager(logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		logger:   logger,
		timeout:  30 * time.Second,
		ctx:      ctx,
		cancel:   cancel,
		tracker:  NewOperationTracker(),
		registry: NewShutdownRegistry(),
		sigChan:  make(chan os.Signal, 2),
		exit:     os.Exit,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.signals = NewSignalCounter(2, func() {
		m.logger.Warn("Received second signal, forcing exit")
		m.exit(core.ExitCodeError)
	})
	return m
}

// Context is cancelled when teardown is requested.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a teardown hook; see the Priority constants.
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("Registered shutdown handler", zap.String("name", name), zap.Int("priority", priority))
}

// Start listens for SIGINT and SIGTERM. Extra calls are no-ops.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go m.handleSignals()
}

func (m *Manager) handleSignals() {
	for sig := range m.sigChan {
		m.HandleSignal(sig)
	}
}

// HandleSignal processes one termination signal as if it had been delivered.
func (m *Manager) HandleSignal(sig os.Signal) {
	if m.signals.Observe(sig) == 1 {
		if m.IsShuttingDown() {
			m.logger.Info("Received signal during shutdown", zap.String("signal", sig.String()))
		} else {
			m.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		}
		m.cancel()
	}
}

// Cancel requests teardown without a signal, e.g. from a service stop.
func (m *Manager) Cancel() {
	m.cancel()
}

// Wait blocks until teardown is requested.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// Shutdown runs the teardown sequence once and returns an error when any
// hook failed. Later calls return nil.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	started := m.started
	m.mu.Unlock()

	m.cancel()
	start := time.Now()
	m.logger.Info("Shutting down",
		zap.Duration("timeout", m.timeout),
		zap.Strings("handlers", m.RegisteredHandlers()),
		zap.Int("active_operations", m.ActiveOperations()))

	m.tracker.Close()
	if err := m.tracker.Wait(m.timeout / 2); err != nil {
		m.logger.Warn("Readers still running after wait",
			zap.Strings("operations", m.tracker.ActiveNames()),
			zap.Duration("waited", time.Since(start)))
	}

	remaining := m.timeout - time.Since(start)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	var failed int
	for _, r := range m.registry.Shutdown(ctx) {
		if r.Err != nil {
			failed++
			m.logger.Error("Shutdown handler failed", zap.String("name", r.Name), zap.Error(r.Err))
			continue
		}
		m.logger.Debug("Shutdown handler done", zap.String("name", r.Name), zap.Duration("duration", r.Duration))
	}

	if started {
		signal.Stop(m.sigChan)
	}

	if failed > 0 {
		return fmt.Errorf("shutdown had %d errors", failed)
	}
	m.logger.Info("Shutdown complete",
		zap.Duration("duration", time.Since(start)),
		zap.Int64("operations_run", m.tracker.Started()))
	return nil
}

// ExitCode returns the process exit code given Shutdown's result: the
// signal convention when a signal started teardown, otherwise success or
// core.ExitCodeError.
func (m *Manager) ExitCode(shutdownErr error) int {
	if code := m.signals.ExitCode(); code != core.ExitCodeSuccess {
		return code
	}
	if shutdownErr != nil {
		return core.ExitCodeError
	}
	return core.ExitCodeSuccess
}

// WrapOperation runs fn as a tracked operation. It returns ErrTrackerClosed
// without running fn once teardown has begun.
func (m *Manager) WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	if !m.tracker.Start(name) {
		m.logger.Debug("Operation rejected, shutting down", zap.String("operation", name))
		return ErrTrackerClosed
	}
	defer m.tracker.Done(name)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// ActiveOperations returns the number of running tracked operations.
func (m *Manager) ActiveOperations() int {
	return m.tracker.ActiveCount()
}

// IsShuttingDown reports whether Shutdown has been called.
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown
}

// RegisteredHandlers returns hook names in execution order.
func (m *Manager) RegisteredHandlers() []string {
	return m.registry.Names()
}
