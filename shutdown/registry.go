package shutdown

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sysmon/core"
)

// Teardown priorities. Lower runs first: the producer stops before the
// journal drains, the journal drains before its database closes, and the
// logger syncs last so every earlier step can still log.
const (
	PrioritySampler = 10
	PriorityJournal = 20
	PriorityStorage = 30
	PriorityLogger  = 40
)

type hook struct {
	name     string
	fn       core.ShutdownFunc
	priority int
	seq      int
}

// HookResult records how one hook went.
type HookResult struct {
	Name     string
	Priority int
	Duration time.Duration
	Err      error
}

// ShutdownRegistry holds teardown hooks and runs them once, in priority
// order. Hooks with equal priority run in registration order.
type ShutdownRegistry struct {
	mu     sync.Mutex
	hooks  []hook
	closed bool
}

// NewShutdownRegistry creates an empty registry.
func NewShutdownRegistry() *ShutdownRegistry {
	return &ShutdownRegistry{}
}

// Register adds a hook. Registration after Shutdown is ignored.
func (r *ShutdownRegistry) Register(name string, priority int, fn core.ShutdownFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.hooks = append(r.hooks, hook{name: name, fn: fn, priority: priority, seq: len(r.hooks)})
}

func (r *ShutdownRegistry) ordered() []hook {
	sorted := make([]hook, len(r.hooks))
	copy(sorted, r.hooks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})
	return sorted
}

// Shutdown runs every hook, even after failures, and returns one result per
// hook. A hook that panics is reported as failed. Calls after the first
// return nil.
func (r *ShutdownRegistry) Shutdown(ctx context.Context) []HookResult {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	hooks := r.ordered()
	r.mu.Unlock()

	results := make([]HookResult, 0, len(hooks))
	for _, h := range hooks {
		start := time.Now()
		err := runHook(ctx, h)
		results = append(results, HookResult{
			Name:     h.name,
			Priority: h.priority,
			Duration: time.Since(start),
			Err:      err,
		})
	}
	return results
}

func runHook(ctx context.Context, h hook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", h.name, r)
		}
	}()
	if err := h.fn(ctx); err != nil {
		return fmt.Errorf("%s: %w", h.name, err)
	}
	return nil
}

// Names returns hook names in execution order.
func (r *ShutdownRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	hooks := r.ordered()
	names := make([]string, len(hooks))
	for i, h := range hooks {
		names[i] = h.name
	}
	return names
}

// Count returns the number of registered hooks.
func (r *ShutdownRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks)
}
