// Package metrics provides the Engine organism that runs one sampling tick.
// This file contains the reconciliation step, the system series update and
// snapshot construction.
package metrics

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// mainThreadName is shown to users as displayMainName.
const (
	mainThreadName  = "main"
	displayMainName = "app_main"
)

// Engine owns the registry, the system series and every counter of the
// producer. It is the single context object passed through a tick and must
// only be driven from one goroutine.
type Engine struct {
	config   SamplerConfig
	registry *Registry
	system   *GlobalSeries
	stacks   StackLookup
	events   EventSink
	logger   *zap.Logger

	// cursor is the shared write position of every series
	cursor int
	tick   uint64

	lastTotal uint64
	haveTotal bool
	wallDelta uint64

	// matched is scratch space indexed by slot, sized to the max capacity
	matched []bool

	// refused holds identities refused during the previous tick
	refused map[ThreadIdentity]struct{}

	stats SamplerStats
}

// NewEngine creates an Engine. stacks, events and logger may be nil.
func NewEngine(config SamplerConfig, stacks StackLookup, events EventSink, logger *zap.Logger) *Engine {
	config = config.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		config:   config,
		registry: NewRegistry(config.InitialCapacity, config.MaxCapacity, config.SampleCount),
		system:   NewGlobalSeries(config.Cores, config.SampleCount),
		stacks:   stacks,
		events:   events,
		logger:   logger,
		matched:  make([]bool, config.MaxCapacity),
		refused:  make(map[ThreadIdentity]struct{}),
	}
}

// Registry exposes the slot arena for inspection in tests.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Cursor returns the shared write position for the next tick.
func (e *Engine) Cursor() int {
	return e.cursor
}

// noteProviderError counts a failed provider call.
func (e *Engine) noteProviderError(scheduler bool) {
	if scheduler {
		e.stats.SchedulerErrors++
	} else {
		e.stats.HostErrors++
	}
}

// Step runs one tick and returns the snapshot to publish.
//
// A nil sched means the scheduler snapshot could not be taken: thread slots
// are neither matched nor aged, their CPU is written as 0 and stack figures
// are held. A nil host writes zero memory figures with PSRAM absent.
func (e *Engine) Step(sched *SchedulerSnapshot, host *HostSample, now time.Time) *Snapshot {
	e.tick++

	if sched != nil {
		e.advanceWall(sched.TotalRunTicks)
		e.reconcile(sched.Threads, now)
	} else {
		e.wallDelta = 0
		for idx := range e.registry.Active() {
			e.registry.at(idx).cpu = 0
		}
	}

	e.writeSlots()
	e.system.Update(e.coreLoad(host, sched != nil), host)
	e.cursor = (e.cursor + 1) % e.config.SampleCount

	return e.snapshot(now)
}

// advanceWall updates the elapsed wall-tick delta used for every CPU figure.
func (e *Engine) advanceWall(total uint64) {
	e.wallDelta = 0
	if e.haveTotal {
		delta, wrapped := RunDelta(e.lastTotal, total)
		if wrapped {
			e.stats.CounterWraps++
			e.logger.Debug("Scheduler run counter went backwards",
				zap.Uint64("previous", e.lastTotal),
				zap.Uint64("current", total))
		}
		e.wallDelta = delta
	}
	e.lastTotal = total
	e.haveTotal = true
}

// reconcile matches live threads, ages missing slots, then allocates slots for
// new identities. Aging runs before allocation so an identity evicted this
// tick frees its slot for a newcomer in the same tick.
func (e *Engine) reconcile(threads []ThreadSample, now time.Time) {
	clear(e.matched)

	seen := make(map[ThreadIdentity]struct{}, len(threads))
	var pending []int

	for i := range threads {
		th := &threads[i]
		if _, dup := seen[th.Identity]; dup {
			e.stats.DuplicateThreads++
			continue
		}
		seen[th.Identity] = struct{}{}

		idx, ok := e.registry.Lookup(th.Identity)
		if !ok {
			pending = append(pending, i)
			continue
		}
		e.observe(idx, th, now)
		e.matched[idx] = true
	}

	for idx := range e.registry.Active() {
		if e.matched[idx] {
			continue
		}
		s := e.registry.at(idx)
		s.absent++
		s.cpu = 0
		if s.absent > e.config.EvictionThreshold {
			e.evict(idx, now)
		}
	}

	refused := make(map[ThreadIdentity]struct{})
	for _, i := range pending {
		th := &threads[i]
		before := e.registry.Capacity()

		idx, err := e.registry.Allocate(th.Identity)
		if err != nil {
			e.refuse(th, refused, now)
			continue
		}

		if grown := e.registry.Capacity(); grown != before {
			e.logger.Info("Task registry grew",
				zap.Int("from", before),
				zap.Int("to", grown))
			e.emit(SlotEvent{
				Kind:   SlotCapacityGrew,
				Slot:   idx,
				Detail: fmt.Sprintf("%d -> %d", before, grown),
				At:     now,
			})
		}

		e.initSlot(idx, th)
		e.matched[idx] = true
		e.stats.Allocations++
		e.logger.Debug("Tracking thread",
			zap.Int("slot", idx),
			zap.String("name", th.Name),
			zap.Uint64("thread_id", uint64(th.Identity.ID)))
		e.emit(SlotEvent{Kind: SlotAllocated, Slot: idx, Identity: th.Identity, Name: th.Name, At: now})
	}
	e.refused = refused
}

// observe updates a matched slot from its live tuple.
func (e *Engine) observe(idx int, th *ThreadSample, now time.Time) {
	s := e.registry.at(idx)

	delta, wrapped := RunDelta(s.prevRunTicks, th.RunTicks)
	if wrapped {
		e.stats.CounterWraps++
		e.logger.Debug("Thread run counter wrapped",
			zap.Int("slot", idx),
			zap.String("name", s.name),
			zap.Uint64("previous", s.prevRunTicks),
			zap.Uint64("current", th.RunTicks))
		e.emit(SlotEvent{
			Kind:     SlotCounterWrap,
			Slot:     idx,
			Identity: th.Identity,
			Name:     s.name,
			Detail:   fmt.Sprintf("%d -> %d", s.prevRunTicks, th.RunTicks),
			At:       now,
		})
	}

	s.cpu = CPUPercent(delta, e.wallDelta)
	s.prevRunTicks = th.RunTicks
	s.runTicks = th.RunTicks
	s.absent = 0
	if th.HighWaterMark < s.stackHWM {
		s.stackHWM = th.HighWaterMark
	}
	e.copyMetadata(s, th)
}

// initSlot prepares a freshly allocated slot. The first CPU value is 0 because
// prev starts equal to current.
func (e *Engine) initSlot(idx int, th *ThreadSample) {
	s := e.registry.at(idx)
	s.prevRunTicks = th.RunTicks
	s.runTicks = th.RunTicks
	s.cpu = 0
	s.absent = 0
	s.stackHWM = th.HighWaterMark
	s.stackBytes, s.stackPct = 0, 0
	s.cpuSeries.ResetAt(e.cursor)
	s.stackBytesSeries.ResetAt(e.cursor)
	s.stackPctSeries.ResetAt(e.cursor)
	e.copyMetadata(s, th)
}

func (e *Engine) copyMetadata(s *slot, th *ThreadSample) {
	s.name = truncateName(th.Name, e.config.NameLength)
	s.currentPriority = th.CurrentPriority
	s.basePriority = th.BasePriority
	s.core = th.Core
	s.idle = th.Idle
	s.stackCapacity = 0
	if e.stacks != nil {
		if capacity, ok := e.stacks.Lookup(th.Identity); ok {
			s.stackCapacity = capacity
		}
	}
}

func (e *Engine) evict(idx int, now time.Time) {
	s := e.registry.at(idx)
	e.registry.MarkInactive(idx)
	e.stats.Evictions++
	e.logger.Debug("Thread evicted",
		zap.Int("slot", idx),
		zap.String("name", s.name),
		zap.Int("absent_ticks", s.absent))
	e.emit(SlotEvent{Kind: SlotEvicted, Slot: idx, Identity: s.identity, Name: s.name, At: now})
}

// refuse applies the registry-full policy: the thread stays untracked this
// tick and is retried next tick. It is logged once per refused stretch.
func (e *Engine) refuse(th *ThreadSample, refused map[ThreadIdentity]struct{}, now time.Time) {
	e.stats.RegistryFull++
	refused[th.Identity] = struct{}{}
	if _, already := e.refused[th.Identity]; already {
		return
	}
	e.logger.Warn("Task registry full, thread not tracked",
		zap.String("name", th.Name),
		zap.Uint64("thread_id", uint64(th.Identity.ID)),
		zap.Int("capacity", e.registry.Capacity()))
	e.emit(SlotEvent{Kind: SlotRefused, Slot: -1, Identity: th.Identity, Name: th.Name, At: now})
}

// writeSlots writes one value per series for every active slot.
func (e *Engine) writeSlots() {
	for idx := range e.registry.Active() {
		s := e.registry.at(idx)
		s.stackBytes, s.stackPct = StackUsage(s.stackCapacity, s.stackHWM, e.config.WordSize)
		s.cpuSeries.Write(s.cpu)
		s.stackBytesSeries.Write(float64(s.stackBytes))
		s.stackPctSeries.Write(s.stackPct)
	}
}

// coreLoad derives per-core CPU percent, preferring host-reported busy
// fractions and falling back to 100 minus the idle thread's share.
func (e *Engine) coreLoad(host *HostSample, haveSched bool) []float64 {
	load := make([]float64, e.system.Cores())
	if host != nil && host.CoreBusy != nil {
		for i := range load {
			if i < len(host.CoreBusy) {
				load[i] = clampPercent(host.CoreBusy[i] * 100)
			}
		}
		return load
	}
	if !haveSched || e.wallDelta == 0 {
		return load
	}
	for idx := range e.registry.Active() {
		s := e.registry.at(idx)
		if !s.idle || s.absent > 0 || s.core < 0 || s.core >= len(load) {
			continue
		}
		load[s.core] = clampPercent(100 - s.cpu)
	}
	return load
}

// snapshot copies the current state into an immutable Snapshot.
func (e *Engine) snapshot(now time.Time) *Snapshot {
	snap := &Snapshot{
		Tick:        e.tick,
		TakenAt:     now,
		SampleCount: e.config.SampleCount,
		System:      e.system.Latest(),
		Slots:       make([]SlotSummary, 0, e.registry.Len()),
		series:      make(map[SeriesID][]float64, 3*e.registry.Len()+e.system.Cores()+9),
	}

	for _, id := range e.system.seriesIDs() {
		snap.series[id] = e.system.ring(id).Values()
	}

	for idx := range e.registry.Active() {
		s := e.registry.at(idx)
		snap.Slots = append(snap.Slots, SlotSummary{
			Index:              idx,
			Name:               s.name,
			DisplayName:        displayName(s.name),
			Identity:           s.identity,
			CurrentPriority:    s.currentPriority,
			BasePriority:       s.basePriority,
			Core:               s.core,
			RunTicks:           s.runTicks,
			StackCapacity:      s.stackCapacity,
			StackHighWaterMark: s.stackHWM,
			StackRemaining:     StackRemaining(s.stackCapacity, s.stackHWM, e.config.WordSize),
			CPUPercent:         s.cpu,
			StackBytes:         s.stackBytes,
			StackPercent:       s.stackPct,
			AbsentTicks:        s.absent,
			Idle:               s.idle,
		})
		snap.series[Thread(SeriesThreadCPU, idx)] = s.cpuSeries.Values()
		snap.series[Thread(SeriesThreadStackBytes, idx)] = s.stackBytesSeries.Values()
		snap.series[Thread(SeriesThreadStackPercent, idx)] = s.stackPctSeries.Values()
	}

	e.stats.Ticks = e.tick
	e.stats.LastTick = now
	e.stats.ActiveSlots = e.registry.Len()
	e.stats.Capacity = e.registry.Capacity()
	snap.Stats = e.stats
	return snap
}

func (e *Engine) emit(event SlotEvent) {
	if e.events == nil {
		return
	}
	event.Tick = e.tick
	e.events.Record(event)
}

// truncateName replaces invalid UTF-8 with U+FFFD, then cuts name to at most
// n bytes without splitting a rune.
func truncateName(name string, n int) string {
	name = strings.ToValidUTF8(name, "\uFFFD")
	if len(name) <= n {
		return name
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}

// displayName maps scheduler names to the names shown to users.
func displayName(name string) string {
	if name == mainThreadName {
		return displayMainName
	}
	return name
}
