// Package metrics provides the provider and read-surface interfaces of the engine.
// This is a molecule that composes the atom-level types from types.go.
package metrics

import (
	"context"
	"iter"
)

// SchedulerSource produces scheduler snapshots.
// Every call must return a self-consistent view of the live thread list.
type SchedulerSource interface {
	// Snapshot returns the live thread list and the elapsed tick counter.
	Snapshot(ctx context.Context) (SchedulerSnapshot, error)
}

// HostSource reads host CPU and memory introspection.
type HostSource interface {
	// ReadHost returns the current memory figures and, when available,
	// the per-core busy fraction since the previous call.
	ReadHost(ctx context.Context) (HostSample, error)
}

// StackLookup resolves the declared stack capacity of a thread.
// It is mutated from arbitrary goroutines and must be safe for concurrent use.
type StackLookup interface {
	// Lookup returns the stack capacity in bytes, or false when unregistered.
	Lookup(id ThreadIdentity) (uint32, bool)
}

// EventSink receives registry lifecycle events.
// Record is called on the producer goroutine and must not block.
type EventSink interface {
	Record(event SlotEvent)
}

// ReadSurface is the only interface presentation layers use.
//
// Implementation strategy:
// - Methods are safe for any number of concurrent readers
// - Results come from one published tick, never a mix of two
// - Zero values and false are returned before the first tick and after Close
type ReadSurface interface {
	// Latest returns the newest value of a series.
	Latest(id SeriesID) (float64, bool)

	// History returns the N values of a series oldest first.
	History(id SeriesID) ([]float64, bool)

	// HistoryIter yields the N values of a series oldest first without copying.
	HistoryIter(id SeriesID) iter.Seq[float64]

	// ActiveSlots returns a summary of every active slot ordered by index.
	ActiveSlots() []SlotSummary

	// System returns the latest system-wide summary.
	System() (SystemSummary, bool)

	// Stats returns the sampler counters of the latest tick.
	Stats() SamplerStats
}
