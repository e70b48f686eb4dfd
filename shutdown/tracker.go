// Package shutdown coordinates agent teardown: signal handling, in-flight
// read tracking and priority-ordered cleanup hooks.
package shutdown

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrTrackerClosed is returned when an operation starts after teardown began.
var ErrTrackerClosed = errors.New("operation tracker is closed")

// ErrWaitTimeout is returned when in-flight operations outlive the wait.
var ErrWaitTimeout = errors.New("wait timeout: operations did not complete in time")

// OperationTracker counts in-flight operations by name so teardown can wait
// for readers of the published snapshot and report which ones are late.
type OperationTracker struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	active map[string]int
	total  int64
	closed bool
}

// NewOperationTracker creates an open tracker.
func NewOperationTracker() *OperationTracker {
	return &OperationTracker{active: make(map[string]int)}
}

// Start registers an operation. It returns false once the tracker is closed;
// otherwise the caller must call Done with the same name.
func (t *OperationTracker) Start(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	t.wg.Add(1)
	t.active[name]++
	t.total++
	return true
}

// Done marks one operation called name as finished.
func (t *OperationTracker) Done(name string) {
	t.mu.Lock()
	if n := t.active[name]; n <= 1 {
		delete(t.active, name)
	} else {
		t.active[name] = n - 1
	}
	t.mu.Unlock()
	t.wg.Done()
}

// Wait blocks until every operation is done or timeout passes.
func (t *OperationTracker) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrWaitTimeout
	}
}

// Close rejects new operations. Running ones continue.
func (t *OperationTracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// ActiveCount returns the number of running operations.
func (t *OperationTracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.active {
		n += c
	}
	return n
}

// ActiveNames returns the sorted names of running operations.
func (t *OperationTracker) ActiveNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.active))
	for name := range t.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Started returns the number of operations ever started.
func (t *OperationTracker) Started() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}
