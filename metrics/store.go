// Package metrics provides the Store organism, the concurrent read surface.
// This file contains the Store which publishes immutable snapshots to readers.
package metrics

import (
	"iter"
	"sync/atomic"
)

// Store holds the latest published Snapshot and serves every read.
//
// The producer replaces the snapshot with one atomic pointer swap per tick.
// Readers load the pointer and work on that snapshot only, so a read never
// mixes two ticks and never blocks the producer.
//
// Usage:
//
//	store := NewStore()
//	sampler := NewSampler(config, sched, host, WithStore(store))
//	cpu, ok := store.Latest(System(SeriesCPUOverall))
type Store struct {
	current atomic.Pointer[Snapshot]
	closed  atomic.Bool
}

// Compile-time check that Store implements ReadSurface
var _ ReadSurface = (*Store)(nil)

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Publish makes snap the current snapshot. Ignored after Close.
func (s *Store) Publish(snap *Snapshot) {
	if snap == nil || s.closed.Load() {
		return
	}
	s.current.Store(snap)
}

// Snapshot returns the current snapshot, or nil before the first tick and
// after Close.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Latest returns the newest value of a series.
func (s *Store) Latest(id SeriesID) (float64, bool) {
	snap := s.current.Load()
	if snap == nil {
		return 0, false
	}
	return snap.Latest(id)
}

// History returns the N values of a series oldest first.
func (s *Store) History(id SeriesID) ([]float64, bool) {
	snap := s.current.Load()
	if snap == nil {
		return nil, false
	}
	return snap.History(id)
}

// HistoryIter yields the N values of a series oldest first.
func (s *Store) HistoryIter(id SeriesID) iter.Seq[float64] {
	snap := s.current.Load()
	if snap == nil {
		return func(func(float64) bool) {}
	}
	return snap.HistoryIter(id)
}

// ActiveSlots returns a copy of the active slot summaries ordered by index.
func (s *Store) ActiveSlots() []SlotSummary {
	snap := s.current.Load()
	if snap == nil {
		return []SlotSummary{}
	}
	return append([]SlotSummary(nil), snap.Slots...)
}

// System returns the latest system-wide summary.
func (s *Store) System() (SystemSummary, bool) {
	snap := s.current.Load()
	if snap == nil {
		return SystemSummary{}, false
	}
	out := snap.System
	out.CPUCores = append([]float64(nil), snap.System.CPUCores...)
	return out, true
}

// Stats returns the sampler counters of the latest tick.
func (s *Store) Stats() SamplerStats {
	snap := s.current.Load()
	if snap == nil {
		return SamplerStats{}
	}
	return snap.Stats
}

// Close releases the published snapshot. Readers holding a snapshot keep it;
// later reads report nothing. The producer must be stopped first.
func (s *Store) Close() error {
	s.closed.Store(true)
	s.current.Store(nil)
	return nil
}
