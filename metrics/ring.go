// Package metrics provides the Ring atom for fixed-length series storage.
// This file contains a generic circular buffer owned by a single writer.
package metrics

import "iter"

// Number is the set of element types a Ring can hold.
type Number interface {
	~int | ~int32 | ~int64 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// Ring is a fixed-length circular series of N values.
//
// The ring is always full: it starts zero-filled and every Write overwrites the
// oldest value. The cursor points at the slot the next Write will fill, which is
// also the oldest value, so a chronological read starts at the cursor and ends
// at cursor-1.
//
// Ring is not safe for concurrent use. The producer owns it and readers see
// copies published through a Snapshot.
type Ring[T Number] struct {
	data   []T
	cursor int
}

// NewRing creates a Ring of length n.
// Panics if n is less than 1.
func NewRing[T Number](n int) *Ring[T] {
	if n < 1 {
		panic("Ring length must be at least 1")
	}
	return &Ring[T]{data: make([]T, n)}
}

// Write stores v at the cursor and advances the cursor modulo N.
func (r *Ring[T]) Write(v T) {
	r.data[r.cursor] = v
	r.cursor = (r.cursor + 1) % len(r.data)
}

// Latest returns the most recently written value.
func (r *Ring[T]) Latest() T {
	return r.data[(r.cursor-1+len(r.data))%len(r.data)]
}

// Chronological yields the N values oldest first.
func (r *Ring[T]) Chronological() iter.Seq[T] {
	return func(yield func(T) bool) {
		n := len(r.data)
		for i := 0; i < n; i++ {
			if !yield(r.data[(r.cursor+i)%n]) {
				return
			}
		}
	}
}

// Values returns a copy of the N values oldest first.
func (r *Ring[T]) Values() []T {
	out := make([]T, 0, len(r.data))
	for v := range r.Chronological() {
		out = append(out, v)
	}
	return out
}

// Cursor returns the index the next Write will fill.
func (r *Ring[T]) Cursor() int {
	return r.cursor
}

// Len returns N.
func (r *Ring[T]) Len() int {
	return len(r.data)
}

// ResetAt zeroes every value and moves the cursor to the given index.
// Recycled slots use it to rejoin the shared write position.
func (r *Ring[T]) ResetAt(cursor int) {
	clear(r.data)
	r.cursor = ((cursor % len(r.data)) + len(r.data)) % len(r.data)
}
