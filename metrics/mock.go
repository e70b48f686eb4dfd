package metrics

import (
	"context"
	"sync"
)

// MockScheduler is a scripted SchedulerSource for testing.
// Each call returns the next queued snapshot; the last one repeats.
type MockScheduler struct {
	mu        sync.Mutex
	snapshots []SchedulerSnapshot
	err       error
	panicMsg  string
	calls     int
}

// NewMockScheduler creates a mock returning the given snapshots in order.
func NewMockScheduler(snapshots ...SchedulerSnapshot) *MockScheduler {
	return &MockScheduler{snapshots: snapshots}
}

// Push queues another snapshot.
func (m *MockScheduler) Push(snap SchedulerSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, snap)
}

// SetError sets an error to be returned by Snapshot.
func (m *MockScheduler) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetPanic makes Snapshot panic with msg. An empty msg disables it.
func (m *MockScheduler) SetPanic(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicMsg = msg
}

// Snapshot returns the next queued snapshot or the configured error.
func (m *MockScheduler) Snapshot(ctx context.Context) (SchedulerSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.err != nil {
		return SchedulerSnapshot{}, m.err
	}
	if len(m.snapshots) == 0 {
		return SchedulerSnapshot{}, nil
	}
	snap := m.snapshots[0]
	if len(m.snapshots) > 1 {
		m.snapshots = m.snapshots[1:]
	}
	return snap, nil
}

// CallCount returns the number of times Snapshot was called.
func (m *MockScheduler) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockHost is a HostSource for testing.
type MockHost struct {
	mu     sync.Mutex
	sample HostSample
	err    error
	calls  int
}

// NewMockHost creates a mock returning sample.
func NewMockHost(sample HostSample) *MockHost {
	return &MockHost{sample: sample}
}

// SetSample updates the sample returned by this mock.
func (m *MockHost) SetSample(sample HostSample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sample = sample
}

// SetError sets an error to be returned by ReadHost.
func (m *MockHost) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// ReadHost returns the configured sample or error.
func (m *MockHost) ReadHost(ctx context.Context) (HostSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return HostSample{}, m.err
	}
	return m.sample, nil
}

// CallCount returns the number of times ReadHost was called.
func (m *MockHost) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// StaticStacks is a fixed StackLookup for testing.
type StaticStacks map[ThreadIdentity]uint32

// Lookup returns the registered capacity.
func (s StaticStacks) Lookup(id ThreadIdentity) (uint32, bool) {
	capacity, ok := s[id]
	return capacity, ok
}

// EventRecorder collects SlotEvents for testing.
type EventRecorder struct {
	mu     sync.Mutex
	events []SlotEvent
}

// Record appends event.
func (r *EventRecorder) Record(event SlotEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []SlotEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SlotEvent(nil), r.events...)
}

// Count returns the number of recorded events of a kind.
func (r *EventRecorder) Count(kind SlotEventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
