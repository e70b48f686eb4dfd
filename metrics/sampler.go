// Package metrics provides the Sampler organism, the periodic producer.
// This file contains the Sampler which drives the Engine at a fixed interval
// and publishes each tick to the Store.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrSamplerStopped is returned when ticking a stopped sampler.
var ErrSamplerStopped = errors.New("sampler stopped")

// SamplerConfig configures the Sampler and its Engine.
type SamplerConfig struct {
	// Interval is the time between ticks
	Interval time.Duration

	// SampleCount is N, the length of every series
	SampleCount int

	// InitialCapacity is the number of registry slots available up front
	InitialCapacity int

	// MaxCapacity is the limit the registry may grow to
	MaxCapacity int

	// EvictionThreshold is the number of consecutive absent ticks tolerated
	// before a slot becomes inactive
	EvictionThreshold int

	// NameLength is the maximum stored thread name length in bytes
	NameLength int

	// WordSize is the number of bytes in one stack word
	WordSize int

	// Cores is the number of cores tracked by the system series
	Cores int

	// MonitorCore pins the producer goroutine's OS thread to a core (-1 disables)
	MonitorCore int
}

// DefaultSamplerConfig returns a default configuration.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Interval:          time.Second,
		SampleCount:       60,
		InitialCapacity:   32,
		MaxCapacity:       256,
		EvictionThreshold: 3,
		NameLength:        24,
		WordSize:          4,
		Cores:             runtime.NumCPU(),
		MonitorCore:       0,
	}
}

// withDefaults replaces invalid values with defaults.
func (c SamplerConfig) withDefaults() SamplerConfig {
	def := DefaultSamplerConfig()
	if c.Interval < 10*time.Millisecond {
		c.Interval = def.Interval
	}
	if c.SampleCount < 1 {
		c.SampleCount = def.SampleCount
	}
	if c.InitialCapacity < 1 {
		c.InitialCapacity = def.InitialCapacity
	}
	if c.MaxCapacity < c.InitialCapacity {
		c.MaxCapacity = c.InitialCapacity
	}
	if c.EvictionThreshold < 0 {
		c.EvictionThreshold = def.EvictionThreshold
	}
	if c.NameLength < 1 {
		c.NameLength = def.NameLength
	}
	if c.WordSize < 1 {
		c.WordSize = def.WordSize
	}
	if c.Cores < 1 {
		c.Cores = def.Cores
	}
	if c.MonitorCore < -1 {
		c.MonitorCore = -1
	}
	return c
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithLogger sets the logger used by the sampler and its engine.
func WithLogger(logger *zap.Logger) SamplerOption {
	return func(s *Sampler) {
		s.logger = logger
	}
}

// WithStackLookup sets the stack-size registry consulted for every thread.
func WithStackLookup(stacks StackLookup) SamplerOption {
	return func(s *Sampler) {
		s.stacks = stacks
	}
}

// WithEventSink sets the receiver of registry lifecycle events.
func WithEventSink(sink EventSink) SamplerOption {
	return func(s *Sampler) {
		s.events = sink
	}
}

// WithStore publishes ticks to an existing Store instead of a new one.
func WithStore(store *Store) SamplerOption {
	return func(s *Sampler) {
		s.store = store
	}
}

// WithTickCallback sets a function invoked after each published tick.
// It runs on the producer goroutine and must return quickly.
func WithTickCallback(fn func(*Snapshot)) SamplerOption {
	return func(s *Sampler) {
		s.onTick = fn
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SamplerOption {
	return func(s *Sampler) {
		s.now = now
	}
}

// Sampler is the single producer of the engine.
//
// It composes:
//   - SchedulerSource and HostSource providers
//   - Engine for reconciliation and series updates
//   - Store for publishing immutable snapshots to readers
//
// Provider failures and panics are counted and logged; a failing provider never
// stops the other one from being sampled.
type Sampler struct {
	config SamplerConfig
	sched  SchedulerSource
	host   HostSource
	stacks StackLookup
	events EventSink
	store  *Store
	engine *Engine
	logger *zap.Logger
	onTick func(*Snapshot)
	now    func() time.Time

	// tickMu serializes ticks from the loop and from TickOnce callers
	tickMu sync.Mutex

	started  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSampler creates a Sampler. Either provider may be nil, in which case the
// corresponding half of every tick is treated as unavailable.
func NewSampler(config SamplerConfig, sched SchedulerSource, host HostSource, opts ...SamplerOption) *Sampler {
	config = config.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Sampler{
		config: config,
		sched:  sched,
		host:   host,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.store == nil {
		s.store = NewStore()
	}
	s.engine = NewEngine(config, s.stacks, s.events, s.logger)
	return s
}

// Store returns the read surface the sampler publishes to.
func (s *Sampler) Store() *Store {
	return s.store
}

// Config returns the effective configuration.
func (s *Sampler) Config() SamplerConfig {
	return s.config
}

// Start begins periodic sampling in a background goroutine.
// Returns ErrSamplerStopped after Stop, and is a no-op when already started.
func (s *Sampler) Start() error {
	if s.stopped.Load() {
		return ErrSamplerStopped
	}
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}
	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop halts sampling and blocks until the producer goroutine has exited.
// The store stays readable until it is closed separately.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		s.cancel()
		s.wg.Wait()
		s.logger.Info("Sampler stopped", zap.Uint64("ticks", s.store.Stats().Ticks))
	})
}

// Stats returns the counters of the last published tick.
func (s *Sampler) Stats() SamplerStats {
	return s.store.Stats()
}

// loop is the producer goroutine.
func (s *Sampler) loop() {
	defer s.wg.Done()

	if s.config.MonitorCore >= 0 {
		if err := pinToCore(s.config.MonitorCore); err != nil {
			s.logger.Warn("Could not pin sampler to core",
				zap.Int("core", s.config.MonitorCore),
				zap.Error(err))
		}
		defer runtime.UnlockOSThread()
	}

	s.logger.Info("Sampler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("sample_count", s.config.SampleCount),
		zap.Int("max_tracked", s.config.MaxCapacity))

	// Sample immediately on start
	s.tickLogged()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tickLogged()
		}
	}
}

func (s *Sampler) tickLogged() {
	snap, err := s.tick(s.ctx)
	if err != nil {
		s.logger.Warn("Sampling tick incomplete", zap.Error(err))
	}
	if s.onTick != nil {
		s.onTick(snap)
	}
}

// TickOnce runs a single tick synchronously and publishes it.
// The returned error reports provider failures; the snapshot is still
// published with whatever data was available.
func (s *Sampler) TickOnce(ctx context.Context) (*Snapshot, error) {
	if s.stopped.Load() {
		return nil, ErrSamplerStopped
	}
	snap, err := s.tick(ctx)
	if s.onTick != nil {
		s.onTick(snap)
	}
	return snap, err
}

func (s *Sampler) tick(ctx context.Context) (*Snapshot, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	start := s.now()

	var schedPtr *SchedulerSnapshot
	var hostPtr *HostSample
	var errs []error

	if s.sched != nil {
		snap, err := readScheduler(ctx, s.sched)
		if err != nil {
			s.engine.noteProviderError(true)
			errs = append(errs, err)
		} else {
			schedPtr = &snap
		}
	}
	if s.host != nil {
		sample, err := readHost(ctx, s.host)
		if err != nil {
			s.engine.noteProviderError(false)
			errs = append(errs, err)
		} else {
			hostPtr = &sample
		}
	}

	snap := s.engine.Step(schedPtr, hostPtr, start)
	snap.Stats.LastTickDuration = s.now().Sub(start)
	s.store.Publish(snap)
	return snap, errors.Join(errs...)
}

// readScheduler calls the provider and converts a panic into an error.
func readScheduler(ctx context.Context, src SchedulerSource) (snap SchedulerSnapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler snapshot panicked: %v", r)
		}
	}()
	snap, err = src.Snapshot(ctx)
	if err != nil {
		return SchedulerSnapshot{}, fmt.Errorf("scheduler snapshot: %w", err)
	}
	return snap, nil
}

// readHost calls the provider and converts a panic into an error.
func readHost(ctx context.Context, src HostSource) (sample HostSample, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("host read panicked: %v", r)
		}
	}()
	sample, err = src.ReadHost(ctx)
	if err != nil {
		return HostSample{}, fmt.Errorf("host read: %w", err)
	}
	return sample, nil
}
