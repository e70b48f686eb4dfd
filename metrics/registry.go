// Package metrics provides the Registry molecule for tracked-thread slots.
// This file contains the slot arena, its free list and the active bitmap.
package metrics

import (
	"container/heap"
	"errors"
	"iter"
	"math/bits"
)

// ErrRegistryFull is returned by Allocate when no slot can be found or grown.
var ErrRegistryFull = errors.New("task registry full")

// slot is one tracked-thread entry of the arena. Slots are recycled, never freed.
type slot struct {
	identity ThreadIdentity
	name     string

	currentPriority int
	basePriority    int
	core            int
	idle            bool

	runTicks     uint64
	prevRunTicks uint64

	stackCapacity uint32
	stackHWM      uint32

	// absent counts consecutive ticks the thread was missing from the snapshot
	absent int

	// latest values written this tick
	cpu        float64
	stackBytes uint64
	stackPct   float64

	cpuSeries        *Ring[float64]
	stackBytesSeries *Ring[float64]
	stackPctSeries   *Ring[float64]
}

// freeList is a min-heap of slot indices so the lowest inactive index is reused first.
type freeList []int

func (f freeList) Len() int           { return len(f) }
func (f freeList) Less(i, j int) bool { return f[i] < f[j] }
func (f freeList) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }
func (f *freeList) Push(x any)        { *f = append(*f, x.(int)) }
func (f *freeList) Pop() any {
	old := *f
	n := len(old)
	x := old[n-1]
	*f = old[:n-1]
	return x
}

// bitmap records which slot indices are active.
type bitmap []uint64

func (b *bitmap) grow(n int) {
	words := (n + 63) / 64
	for len(*b) < words {
		*b = append(*b, 0)
	}
}

func (b bitmap) set(i int)       { b[i/64] |= 1 << (uint(i) % 64) }
func (b bitmap) clear(i int)     { b[i/64] &^= 1 << (uint(i) % 64) }
func (b bitmap) test(i int) bool { return b[i/64]&(1<<(uint(i)%64)) != 0 }

// all yields set indices in ascending order.
func (b bitmap) all() iter.Seq[int] {
	return func(yield func(int) bool) {
		for w, word := range b {
			for word != 0 {
				tz := bits.TrailingZeros64(word)
				if !yield(w*64 + tz) {
					return
				}
				word &^= 1 << uint(tz)
			}
		}
	}
}

// Registry is a bounded arena of tracked-thread slots.
//
// Slots are addressed by stable integer index. An identity maps to at most one
// active slot. Inactive slots go on a free list and are preferred over
// never-used capacity when allocating. Capacity doubles on demand up to max.
//
// Registry is owned by the producer and is not safe for concurrent use.
type Registry struct {
	slots       []*slot
	capacity    int
	maxCapacity int
	used        int // high-water mark of indices ever handed out
	sampleCount int

	active bitmap
	free   freeList
	index  map[ThreadIdentity]int
	count  int
}

// NewRegistry creates a Registry with the given initial and maximum capacity.
// Each slot carries three series of sampleCount values.
// Invalid sizes are clamped to the nearest valid value.
func NewRegistry(initial, maxCapacity, sampleCount int) *Registry {
	if initial < 1 {
		initial = 1
	}
	if maxCapacity < initial {
		maxCapacity = initial
	}
	if sampleCount < 1 {
		sampleCount = 1
	}

	r := &Registry{
		slots:       make([]*slot, 0, initial),
		capacity:    initial,
		maxCapacity: maxCapacity,
		sampleCount: sampleCount,
		index:       make(map[ThreadIdentity]int, initial),
	}
	r.active.grow(initial)
	return r
}

// Lookup returns the active slot index for an identity.
func (r *Registry) Lookup(id ThreadIdentity) (int, bool) {
	idx, ok := r.index[id]
	return idx, ok
}

// Allocate binds an identity to a slot and marks it active.
//
// An inactive slot is preferred (lowest index first), then never-used capacity,
// then growth. The returned slot keeps its series storage; the caller resets it.
// Returns ErrRegistryFull when capacity is exhausted and cannot grow.
func (r *Registry) Allocate(id ThreadIdentity) (int, error) {
	if idx, ok := r.index[id]; ok {
		return idx, nil
	}

	var idx int
	switch {
	case r.free.Len() > 0:
		idx = heap.Pop(&r.free).(int)
	case r.used < r.capacity:
		idx = r.used
		r.used++
	case r.grow():
		idx = r.used
		r.used++
	default:
		return -1, ErrRegistryFull
	}

	if idx == len(r.slots) {
		r.slots = append(r.slots, &slot{
			cpuSeries:        NewRing[float64](r.sampleCount),
			stackBytesSeries: NewRing[float64](r.sampleCount),
			stackPctSeries:   NewRing[float64](r.sampleCount),
		})
	}

	r.slots[idx].identity = id
	r.index[id] = idx
	r.active.set(idx)
	r.count++
	return idx, nil
}

// grow doubles capacity up to the maximum. Returns false when already at max.
func (r *Registry) grow() bool {
	if r.capacity >= r.maxCapacity {
		return false
	}
	next := r.capacity * 2
	if next > r.maxCapacity {
		next = r.maxCapacity
	}
	r.capacity = next
	r.active.grow(next)
	return true
}

// MarkInactive releases the slot's identity and returns the slot to the free list.
func (r *Registry) MarkInactive(idx int) {
	if idx < 0 || idx >= r.used || !r.active.test(idx) {
		return
	}
	s := r.slots[idx]
	if cur, ok := r.index[s.identity]; ok && cur == idx {
		delete(r.index, s.identity)
	}
	r.active.clear(idx)
	heap.Push(&r.free, idx)
	r.count--
}

// IsActive reports whether the slot at idx is active.
func (r *Registry) IsActive(idx int) bool {
	return idx >= 0 && idx < r.used && r.active.test(idx)
}

// Active yields active slot indices in ascending order.
func (r *Registry) Active() iter.Seq[int] {
	return r.active.all()
}

// Len returns the number of active slots.
func (r *Registry) Len() int {
	return r.count
}

// Capacity returns the current capacity.
func (r *Registry) Capacity() int {
	return r.capacity
}

// MaxCapacity returns the growth limit.
func (r *Registry) MaxCapacity() int {
	return r.maxCapacity
}

// at returns the slot at idx. The index must have been handed out by Allocate.
func (r *Registry) at(idx int) *slot {
	return r.slots[idx]
}
