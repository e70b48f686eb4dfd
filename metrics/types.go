// Package metrics provides pure data types for the thread telemetry engine.
// This file contains atom-level type definitions with no behavior.
package metrics

import "time"

// ThreadID is the scheduler-assigned numeric identifier of a thread.
type ThreadID uint64

// ThreadIdentity uniquely identifies a live thread for the lifetime of that thread.
// The scheduler may reuse an identity once the thread is destroyed.
type ThreadIdentity struct {
	// Handle is an opaque scheduler handle (task control block address,
	// thread start time, or any value that distinguishes reused IDs)
	Handle uint64 `json:"handle"`

	// ID is the numeric thread identifier
	ID ThreadID `json:"id"`
}

// CoreAny marks a thread that is not pinned to a single core.
const CoreAny = -1

// ThreadSample is one live-thread tuple taken from a scheduler snapshot.
type ThreadSample struct {
	// Identity is the handle/ID pair of the thread
	Identity ThreadIdentity `json:"identity"`

	// Name is the thread name as reported by the scheduler
	Name string `json:"name"`

	// CurrentPriority is the effective scheduling priority
	CurrentPriority int `json:"current_priority"`

	// BasePriority is the priority the thread was created with
	BasePriority int `json:"base_priority"`

	// Core is the core affinity, or CoreAny
	Core int `json:"core"`

	// RunTicks is the cumulative runtime counter of the thread
	RunTicks uint64 `json:"run_ticks"`

	// HighWaterMark is the minimum free stack ever observed, in stack words
	HighWaterMark uint32 `json:"high_water_mark"`

	// Idle marks the scheduler's idle thread for Core
	Idle bool `json:"idle"`
}

// SchedulerSnapshot is the full live-thread list for one sampling instant.
// All values inside a snapshot must be consistent with each other.
type SchedulerSnapshot struct {
	// Threads is every live thread at the sampling instant
	Threads []ThreadSample `json:"threads"`

	// TotalRunTicks is the scheduler's elapsed tick counter at the sampling instant,
	// in the same unit as ThreadSample.RunTicks
	TotalRunTicks uint64 `json:"total_run_ticks"`
}

// HostSample is one reading of host memory and CPU introspection.
type HostSample struct {
	// CoreBusy holds the busy fraction (0-1) for each core.
	// When nil, per-core load is derived from the scheduler's idle threads.
	CoreBusy []float64 `json:"core_busy,omitempty"`

	// DRAMFree is the free internal memory in bytes
	DRAMFree uint64 `json:"dram_free"`

	// DRAMLargestBlock is the largest allocatable internal block in bytes
	DRAMLargestBlock uint64 `json:"dram_largest_block"`

	// DRAMTotal is the total internal memory in bytes
	DRAMTotal uint64 `json:"dram_total"`

	// PSRAMPresent reports whether external memory exists on this host
	PSRAMPresent bool `json:"psram_present"`

	// PSRAMFree is the free external memory in bytes (0 when absent)
	PSRAMFree uint64 `json:"psram_free"`

	// PSRAMTotal is the total external memory in bytes (0 when absent)
	PSRAMTotal uint64 `json:"psram_total"`
}

// SlotSummary is the read-only view of one active registry slot.
type SlotSummary struct {
	// Index is the stable slot index inside the registry
	Index int `json:"index"`

	// Name is the truncated thread name stored in the slot
	Name string `json:"name"`

	// DisplayName is the name presented to users ("main" is shown as "app_main")
	DisplayName string `json:"display_name"`

	Identity        ThreadIdentity `json:"identity"`
	CurrentPriority int            `json:"current_priority"`
	BasePriority    int            `json:"base_priority"`
	Core            int            `json:"core"`

	// RunTicks is the last observed cumulative runtime counter
	RunTicks uint64 `json:"run_ticks"`

	// StackCapacity is the registered stack size in bytes (0 = unregistered)
	StackCapacity uint32 `json:"stack_capacity"`

	// StackHighWaterMark is the minimum free stack observed, in words
	StackHighWaterMark uint32 `json:"stack_high_water_mark"`

	// StackRemaining is StackHighWaterMark converted to bytes.
	// Zero for unregistered threads.
	StackRemaining uint64 `json:"stack_remaining"`

	// CPUPercent, StackBytes and StackPercent are the latest series values
	CPUPercent   float64 `json:"cpu_percent"`
	StackBytes   uint64  `json:"stack_bytes"`
	StackPercent float64 `json:"stack_percent"`

	// AbsentTicks counts consecutive ticks the thread was missing from the snapshot
	AbsentTicks int `json:"absent_ticks"`

	// Idle marks the scheduler idle thread of a core
	Idle bool `json:"idle"`
}

// Registered reports whether stack figures are meaningful for this slot.
func (s SlotSummary) Registered() bool {
	return s.StackCapacity > 0
}

// SystemSummary is the latest sample of every system-wide series.
type SystemSummary struct {
	CPUOverall       float64   `json:"cpu_overall"`
	CPUCores         []float64 `json:"cpu_cores"`
	DRAMFree         uint64    `json:"dram_free"`
	DRAMMinFree      uint64    `json:"dram_min_free"`
	DRAMLargestBlock uint64    `json:"dram_largest_block"`
	DRAMTotal        uint64    `json:"dram_total"`
	DRAMUsedPercent  float64   `json:"dram_used_percent"`
	PSRAMPresent     bool      `json:"psram_present"`
	PSRAMFree        uint64    `json:"psram_free"`
	PSRAMTotal       uint64    `json:"psram_total"`
	PSRAMUsedPercent float64   `json:"psram_used_percent"`
}

// SamplerStats reports the producer's own bookkeeping counters.
type SamplerStats struct {
	// Ticks is the number of completed sampling ticks
	Ticks uint64 `json:"ticks"`

	// LastTick is when the last tick completed
	LastTick time.Time `json:"last_tick"`

	// LastTickDuration is how long the last tick took
	LastTickDuration time.Duration `json:"last_tick_duration"`

	// ActiveSlots is the number of active registry slots after the last tick
	ActiveSlots int `json:"active_slots"`

	// Capacity is the current registry capacity
	Capacity int `json:"capacity"`

	Allocations      uint64 `json:"allocations"`
	Evictions        uint64 `json:"evictions"`
	RegistryFull     uint64 `json:"registry_full"`
	CounterWraps     uint64 `json:"counter_wraps"`
	SchedulerErrors  uint64 `json:"scheduler_errors"`
	HostErrors       uint64 `json:"host_errors"`
	DuplicateThreads uint64 `json:"duplicate_threads"`
}

// SeriesKind names one family of circular series.
type SeriesKind int

// Series kinds. Thread kinds are indexed by slot, SeriesCPUCore by core.
const (
	SeriesCPUOverall SeriesKind = iota
	SeriesCPUCore
	SeriesDRAMFree
	SeriesDRAMMinFree
	SeriesDRAMLargestBlock
	SeriesDRAMTotal
	SeriesDRAMUsedPercent
	SeriesPSRAMFree
	SeriesPSRAMTotal
	SeriesPSRAMUsedPercent
	SeriesThreadCPU
	SeriesThreadStackBytes
	SeriesThreadStackPercent
)

// String returns the series kind name used in logs and exports.
func (k SeriesKind) String() string {
	switch k {
	case SeriesCPUOverall:
		return "cpu_overall"
	case SeriesCPUCore:
		return "cpu_core"
	case SeriesDRAMFree:
		return "dram_free"
	case SeriesDRAMMinFree:
		return "dram_min_free"
	case SeriesDRAMLargestBlock:
		return "dram_largest_block"
	case SeriesDRAMTotal:
		return "dram_total"
	case SeriesDRAMUsedPercent:
		return "dram_used_percent"
	case SeriesPSRAMFree:
		return "psram_free"
	case SeriesPSRAMTotal:
		return "psram_total"
	case SeriesPSRAMUsedPercent:
		return "psram_used_percent"
	case SeriesThreadCPU:
		return "thread_cpu"
	case SeriesThreadStackBytes:
		return "thread_stack_bytes"
	case SeriesThreadStackPercent:
		return "thread_stack_percent"
	default:
		return "unknown"
	}
}

// PerThread reports whether the kind is indexed by registry slot.
func (k SeriesKind) PerThread() bool {
	return k == SeriesThreadCPU || k == SeriesThreadStackBytes || k == SeriesThreadStackPercent
}

// SeriesID addresses a single series. Index is the core for SeriesCPUCore,
// the slot index for thread kinds, and ignored otherwise.
type SeriesID struct {
	Kind  SeriesKind `json:"kind"`
	Index int        `json:"index"`
}

// System returns the ID of a system-wide series.
func System(kind SeriesKind) SeriesID {
	return SeriesID{Kind: kind}
}

// Core returns the ID of one core's CPU series.
func Core(core int) SeriesID {
	return SeriesID{Kind: SeriesCPUCore, Index: core}
}

// Thread returns the ID of a per-slot series.
func Thread(kind SeriesKind, slot int) SeriesID {
	return SeriesID{Kind: kind, Index: slot}
}

// SlotEventKind classifies registry lifecycle events.
type SlotEventKind string

// Lifecycle event kinds
const (
	SlotAllocated    SlotEventKind = "allocated"
	SlotEvicted      SlotEventKind = "evicted"
	SlotRefused      SlotEventKind = "registry_full"
	SlotCounterWrap  SlotEventKind = "counter_wrap"
	SlotCapacityGrew SlotEventKind = "capacity_grew"
)

// SlotEvent describes one registry lifecycle transition.
type SlotEvent struct {
	Kind     SlotEventKind  `json:"kind"`
	Tick     uint64         `json:"tick"`
	Slot     int            `json:"slot"`
	Identity ThreadIdentity `json:"identity"`
	Name     string         `json:"name"`
	Detail   string         `json:"detail,omitempty"`
	At       time.Time      `json:"at"`
}
