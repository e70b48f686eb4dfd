// Package metrics provides the Snapshot molecule, one published tick.
// This file contains the immutable view readers receive from the Store.
package metrics

import (
	"iter"
	"time"
)

// Snapshot is the immutable result of one sampling tick.
//
// The producer builds a new Snapshot every tick and publishes it with a single
// atomic swap, so readers never observe a half-written tick. Nothing inside a
// published Snapshot is modified afterwards.
type Snapshot struct {
	// Tick is the 1-based tick number that produced the snapshot
	Tick uint64 `json:"tick"`

	// TakenAt is when the tick started
	TakenAt time.Time `json:"taken_at"`

	// SampleCount is N, the length of every series
	SampleCount int `json:"sample_count"`

	// System is the latest system-wide summary
	System SystemSummary `json:"system"`

	// Slots are the active slot summaries ordered by index
	Slots []SlotSummary `json:"slots"`

	// Stats are the producer counters after this tick
	Stats SamplerStats `json:"stats"`

	series map[SeriesID][]float64
}

// Latest returns the newest value of a series.
func (s *Snapshot) Latest(id SeriesID) (float64, bool) {
	values, ok := s.series[id]
	if !ok || len(values) == 0 {
		return 0, false
	}
	return values[len(values)-1], true
}

// History returns a copy of the series oldest first.
func (s *Snapshot) History(id SeriesID) ([]float64, bool) {
	values, ok := s.series[id]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), values...), true
}

// HistoryIter yields the series oldest first. Unknown series yield nothing.
func (s *Snapshot) HistoryIter(id SeriesID) iter.Seq[float64] {
	values := s.series[id]
	return func(yield func(float64) bool) {
		for _, v := range values {
			if !yield(v) {
				return
			}
		}
	}
}

// Slot returns the summary of an active slot.
func (s *Snapshot) Slot(index int) (SlotSummary, bool) {
	for _, sum := range s.Slots {
		if sum.Index == index {
			return sum, true
		}
	}
	return SlotSummary{}, false
}

// SlotByName returns the first active slot whose name matches.
func (s *Snapshot) SlotByName(name string) (SlotSummary, bool) {
	for _, sum := range s.Slots {
		if sum.Name == name || sum.DisplayName == name {
			return sum, true
		}
	}
	return SlotSummary{}, false
}

// Series returns the IDs of every series in the snapshot.
func (s *Snapshot) Series() []SeriesID {
	ids := make([]SeriesID, 0, len(s.series))
	for id := range s.series {
		ids = append(ids, id)
	}
	return ids
}
