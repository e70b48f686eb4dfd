package hostinfo

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"sysmon/metrics"
)

// StackRegistrar receives stack registrations for simulated threads.
type StackRegistrar interface {
	Register(id metrics.ThreadIdentity, capacity uint32) error
	Unregister(id metrics.ThreadIdentity) bool
}

// SimulatorConfig configures the simulated scheduler.
type SimulatorConfig struct {
	// Interval is the simulated time that passes per snapshot
	Interval time.Duration

	// Cores is the number of simulated cores, each with an idle thread
	Cores int

	// PSRAM enables simulated external memory
	PSRAM bool

	// CycleRun is how long the cycling worker lives
	CycleRun time.Duration

	// CycleGap is how long the cycling worker stays deleted
	CycleGap time.Duration

	// Seed makes the jitter reproducible
	Seed uint64
}

// DefaultSimulatorConfig returns a default configuration.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Interval: time.Second,
		Cores:    2,
		PSRAM:    true,
		CycleRun: 7 * time.Second,
		CycleGap: 7100 * time.Millisecond,
		Seed:     1,
	}
}

// Simulated memory layout
const (
	simDRAMTotal  = 320 * 1024
	simDRAMBase   = 180 * 1024
	simPSRAMTotal = 4 * 1024 * 1024
	simPSRAMUsed  = 96 * 1024
	simWordSize   = 4
)

// Sine wave worker parameters
const (
	sineCycle   = 17 * time.Second
	sineMinLoad = 0.10
	sineMaxLoad = 0.80
)

// simTask is one simulated thread.
type simTask struct {
	identity metrics.ThreadIdentity
	name     string
	priority int
	core     int // reported affinity
	account  int // core its load is charged to
	idle     bool
	stack    uint32
	load     func(elapsed time.Duration) float64

	runTicks  uint64
	stackUsed uint32
	stackPeak uint32
}

// Simulator is a deterministic scheduler and host that reproduces an
// embedded demo workload: one idle thread per core, the main thread, a
// sine-wave CPU load, a task manager, an LED animation, and a worker that the
// task manager creates and deletes periodically.
//
// Each Snapshot call advances simulated time by one interval.
type Simulator struct {
	mu     sync.Mutex
	config SimulatorConfig
	stacks StackRegistrar
	rng    *rand.Rand

	elapsed    time.Duration
	totalTicks uint64
	nextHandle uint64
	nextID     metrics.ThreadID

	tasks     []*simTask
	cycle     *simTask
	cycleNext time.Duration // when the worker is next created or deleted

	dramDrift int64
}

// Compile-time checks that Simulator provides both sampler inputs
var (
	_ metrics.SchedulerSource = (*Simulator)(nil)
	_ metrics.HostSource      = (*Simulator)(nil)
)

// NewSimulator creates a Simulator. stacks may be nil.
func NewSimulator(config SimulatorConfig, stacks StackRegistrar) *Simulator {
	def := DefaultSimulatorConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Cores < 1 {
		config.Cores = def.Cores
	}
	if config.CycleRun <= 0 {
		config.CycleRun = def.CycleRun
	}
	if config.CycleGap <= 0 {
		config.CycleGap = def.CycleGap
	}

	s := &Simulator{
		config:     config,
		stacks:     stacks,
		rng:        rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)),
		nextHandle: 0x3ffb0000,
		nextID:     1,
	}

	for c := 0; c < config.Cores; c++ {
		s.spawn(&simTask{
			name:    "IDLE" + string(rune('0'+c%10)),
			core:    c,
			account: c,
			idle:    true,
			stack:   1536,
		})
	}
	s.spawn(&simTask{
		name: "main", priority: 1, core: metrics.CoreAny, account: 0, stack: 3584,
		load: constantLoad(0.005),
	})
	s.spawn(&simTask{
		name: "sine_wave", priority: 6, core: 0, account: 0, stack: 2560,
		load: sineLoad,
	})
	s.spawn(&simTask{
		name: "task_manager", priority: 3, core: metrics.CoreAny, account: config.Cores - 1, stack: 5120,
		load: constantLoad(0.001),
	})
	s.spawn(&simTask{
		name: "rgb_led", priority: 5, core: metrics.CoreAny, account: config.Cores - 1, stack: 3072,
		load: constantLoad(0.004),
	})
	s.createCycle()
	return s
}

func constantLoad(frac float64) func(time.Duration) float64 {
	return func(time.Duration) float64 { return frac }
}

func sineLoad(elapsed time.Duration) float64 {
	phase := 2 * math.Pi * float64(elapsed%sineCycle) / float64(sineCycle)
	return sineMinLoad + (sineMaxLoad-sineMinLoad)*0.5*(math.Sin(phase)+1)
}

// spawn assigns an identity, seeds stack usage and registers the stack.
func (s *Simulator) spawn(t *simTask) {
	t.identity = metrics.ThreadIdentity{Handle: s.nextHandle, ID: s.nextID}
	s.nextHandle += 0x160
	s.nextID++

	t.stackUsed = t.stack / 4
	t.stackPeak = t.stackUsed
	s.tasks = append(s.tasks, t)

	if s.stacks != nil && !t.idle {
		_ = s.stacks.Register(t.identity, t.stack)
	}
}

func (s *Simulator) createCycle() {
	t := &simTask{
		name: "demo_cycle_task", priority: 6, core: s.config.Cores - 1, account: s.config.Cores - 1, stack: 4096,
		load: constantLoad(0.5),
	}
	s.spawn(t)
	t.stackUsed = t.stack/4 + 896
	t.stackPeak = t.stackUsed
	s.cycle = t
	s.cycleNext = s.elapsed + s.config.CycleRun
}

func (s *Simulator) deleteCycle() {
	for i, t := range s.tasks {
		if t == s.cycle {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			break
		}
	}
	if s.stacks != nil {
		s.stacks.Unregister(s.cycle.identity)
	}
	s.cycle = nil
	s.cycleNext = s.elapsed + s.config.CycleGap
}

// Step advances simulated time by one interval.
func (s *Simulator) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step()
}

func (s *Simulator) step() {
	s.elapsed += s.config.Interval
	if s.elapsed >= s.cycleNext {
		if s.cycle != nil {
			s.deleteCycle()
		} else {
			s.createCycle()
		}
	}

	interval := uint64(s.config.Interval.Microseconds())
	busy := make([]float64, s.config.Cores)

	for _, t := range s.tasks {
		if t.idle {
			continue
		}
		frac := t.load(s.elapsed) * (0.9 + 0.2*s.rng.Float64())
		if rest := 1 - busy[t.account]; frac > rest {
			frac = rest
		}
		busy[t.account] += frac
		t.runTicks += uint64(frac * float64(interval))

		// stack usage creeps toward its peak and never shrinks the high water mark
		if s.rng.IntN(4) == 0 && t.stackUsed+64 < t.stack*3/4 {
			t.stackUsed += uint32(s.rng.IntN(8)) * simWordSize
		}
		if t.stackUsed > t.stackPeak {
			t.stackPeak = t.stackUsed
		}
	}

	for _, t := range s.tasks {
		if t.idle {
			t.runTicks += uint64((1 - busy[t.account]) * float64(interval))
		}
	}

	s.totalTicks += interval
	s.dramDrift += int64(s.rng.IntN(2049)) - 1024
	if s.dramDrift < -16*1024 || s.dramDrift > 16*1024 {
		s.dramDrift /= 2
	}
}

// Snapshot advances one interval and returns the thread list.
func (s *Simulator) Snapshot(ctx context.Context) (metrics.SchedulerSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return metrics.SchedulerSnapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.step()

	snap := metrics.SchedulerSnapshot{
		Threads:       make([]metrics.ThreadSample, 0, len(s.tasks)),
		TotalRunTicks: s.totalTicks,
	}
	for _, t := range s.tasks {
		snap.Threads = append(snap.Threads, metrics.ThreadSample{
			Identity:        t.identity,
			Name:            t.name,
			CurrentPriority: t.priority,
			BasePriority:    t.priority,
			Core:            t.core,
			RunTicks:        t.runTicks,
			HighWaterMark:   (t.stack - t.stackPeak) / simWordSize,
			Idle:            t.idle,
		})
	}
	return snap, nil
}

// ReadHost returns simulated memory. CoreBusy is left nil so per-core load is
// derived from the idle threads.
func (s *Simulator) ReadHost(ctx context.Context) (metrics.HostSample, error) {
	if err := ctx.Err(); err != nil {
		return metrics.HostSample{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	free := int64(simDRAMBase) + s.dramDrift
	if s.cycle != nil {
		free -= int64(s.cycle.stack) + 344
	}
	sample := metrics.HostSample{
		DRAMFree:         uint64(free),
		DRAMLargestBlock: uint64(free) * 3 / 5,
		DRAMTotal:        simDRAMTotal,
	}
	if s.config.PSRAM {
		sample.PSRAMPresent = true
		sample.PSRAMTotal = simPSRAMTotal
		sample.PSRAMFree = simPSRAMTotal - simPSRAMUsed
	}
	return sample, nil
}

// Alive reports whether a simulated thread exists.
func (s *Simulator) Alive(id metrics.ThreadIdentity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.identity == id {
			return true
		}
	}
	return false
}

// Elapsed returns the simulated time.
func (s *Simulator) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// ThreadCount returns the number of live simulated threads.
func (s *Simulator) ThreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
