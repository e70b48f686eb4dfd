package shutdown

import (
	"os"
	"sync"
	"syscall"

	"sysmon/core"
)

// SignalCounter counts termination signals. The first starts a graceful
// teardown; reaching forceAfter calls onForce.
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	first      os.Signal
	forceAfter int
	onForce    func()
}

// NewSignalCounter creates a counter. onForce may be nil.
func NewSignalCounter(forceAfter int, onForce func()) *SignalCounter {
	return &SignalCounter{forceAfter: forceAfter, onForce: onForce}
}

// Observe records sig and returns the new count. onForce runs under the
// lock, so it should exit the process or return quickly.
func (s *SignalCounter) Observe(sig os.Signal) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if s.count == 1 {
		s.first = sig
	}
	if s.forceAfter > 0 && s.count >= s.forceAfter && s.onForce != nil {
		s.onForce()
	}
	return s.count
}

// Count returns the number of signals seen.
func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// ExitCode maps the first signal to the process exit code, or
// core.ExitCodeSuccess when no signal arrived.
func (s *SignalCounter) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ExitCodeFor(s.first)
}

// ExitCodeFor returns the conventional exit code for sig.
func ExitCodeFor(sig os.Signal) int {
	switch sig {
	case nil:
		return core.ExitCodeSuccess
	case os.Interrupt:
		return core.ExitCodeSIGINT
	case syscall.SIGTERM:
		return core.ExitCodeSIGTERM
	default:
		return core.ExitCodeError
	}
}
