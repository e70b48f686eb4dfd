// Package stackreg provides the stack-size registry.
//
// Threads (or the code that creates them) register their declared stack
// capacity here. The sampler consults the registry on every tick to turn a
// high water mark into a usage percentage. Registration happens from arbitrary
// goroutines, so this is the one mutex-protected structure on the sampling path.
package stackreg

import (
	"errors"
	"fmt"
	"sync"

	"sysmon/metrics"

	"go.uber.org/zap"
)

// DefaultMaxRecords bounds the number of registrations.
const DefaultMaxRecords = 256

var (
	// ErrNotInitialized is returned when registering on a nil registry.
	ErrNotInitialized = errors.New("stack registry not initialized")

	// ErrInvalidCapacity is returned for a zero stack capacity.
	ErrInvalidCapacity = errors.New("stack capacity must be positive")

	// ErrFull is returned when the registry holds MaxRecords entries.
	ErrFull = errors.New("stack registry full")
)

// Registry maps thread identities to declared stack capacities in bytes.
type Registry struct {
	mu         sync.RWMutex
	records    map[metrics.ThreadIdentity]uint32
	maxRecords int
	logger     *zap.Logger
}

// Compile-time check that Registry satisfies the sampler's lookup
var _ metrics.StackLookup = (*Registry)(nil)

// New creates a Registry holding at most maxRecords entries.
// A non-positive maxRecords uses DefaultMaxRecords.
func New(maxRecords int, logger *zap.Logger) *Registry {
	if maxRecords < 1 {
		maxRecords = DefaultMaxRecords
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		records:    make(map[metrics.ThreadIdentity]uint32),
		maxRecords: maxRecords,
		logger:     logger,
	}
}

// Register records the stack capacity of a thread. Registering an identity
// again updates its capacity.
func (r *Registry) Register(id metrics.ThreadIdentity, capacity uint32) error {
	if r == nil {
		return ErrNotInitialized
	}
	if capacity == 0 {
		r.logger.Warn("Refusing stack registration with zero capacity",
			zap.Uint64("thread_id", uint64(id.ID)))
		return ErrInvalidCapacity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok && len(r.records) >= r.maxRecords {
		r.logger.Warn("Stack registry full",
			zap.Uint64("thread_id", uint64(id.ID)),
			zap.Int("max_records", r.maxRecords))
		return fmt.Errorf("register thread %d: %w", id.ID, ErrFull)
	}
	r.records[id] = capacity
	return nil
}

// Lookup returns the registered capacity of a thread.
func (r *Registry) Lookup(id metrics.ThreadIdentity) (uint32, bool) {
	if r == nil {
		return 0, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	capacity, ok := r.records[id]
	return capacity, ok
}

// Unregister removes a thread's record. Returns false if none existed.
func (r *Registry) Unregister(id metrics.ThreadIdentity) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return false
	}
	delete(r.records, id)
	return true
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Cleanup removes every record whose thread is no longer alive and returns
// the number removed.
func (r *Registry) Cleanup(alive func(metrics.ThreadIdentity) bool) int {
	if r == nil || alive == nil {
		return 0
	}

	// Liveness checks may touch the filesystem, so run them outside the lock.
	r.mu.RLock()
	ids := make([]metrics.ThreadIdentity, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	var dead []metrics.ThreadIdentity
	for _, id := range ids {
		if !alive(id) {
			dead = append(dead, id)
		}
	}
	if len(dead) == 0 {
		return 0
	}

	r.mu.Lock()
	for _, id := range dead {
		delete(r.records, id)
	}
	r.mu.Unlock()

	r.logger.Debug("Removed stale stack registrations", zap.Int("count", len(dead)))
	return len(dead)
}
