// Package telemetry exposes the sampler's read surface as Prometheus metrics.
//
// Collector is a pull-style prometheus.Collector: every Collect reads the one
// published snapshot, so a scrape never mixes values from two ticks.
package telemetry

import (
	"strconv"

	"sysmon/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sysmon"

// SnapshotSource returns the latest published snapshot, or nil before the
// first tick. *metrics.Store implements it.
type SnapshotSource interface {
	Snapshot() *metrics.Snapshot
}

// Collector converts snapshots into Prometheus metrics.
type Collector struct {
	source SnapshotSource

	cpuOverall   *prometheus.Desc
	cpuCore      *prometheus.Desc
	memoryBytes  *prometheus.Desc
	memoryUsed   *prometheus.Desc
	psramPresent *prometheus.Desc

	threadCPU        *prometheus.Desc
	threadStackBytes *prometheus.Desc
	threadStackPct   *prometheus.Desc
	threadStackLeft  *prometheus.Desc
	threadAbsent     *prometheus.Desc

	ticks          *prometheus.Desc
	tickDuration   *prometheus.Desc
	activeSlots    *prometheus.Desc
	capacity       *prometheus.Desc
	slotEvents     *prometheus.Desc
	providerErrors *prometheus.Desc
	duplicates     *prometheus.Desc
}

// Compile-time check
var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector over source.
func NewCollector(source SnapshotSource) *Collector {
	threadLabels := []string{"slot", "name", "core"}
	return &Collector{
		source: source,

		cpuOverall: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cpu", "overall_percent"),
			"Mean CPU load across tracked cores.", nil, nil),
		cpuCore: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cpu", "core_percent"),
			"CPU load of one core.", []string{"core"}, nil),
		memoryBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "memory", "bytes"),
			"Memory figures by region.", []string{"region", "figure"}, nil),
		memoryUsed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "memory", "used_percent"),
			"Share of a memory region in use.", []string{"region"}, nil),
		psramPresent: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "memory", "psram_present"),
			"1 when external memory is present.", nil, nil),

		threadCPU: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "thread", "cpu_percent"),
			"CPU share of a tracked thread over the last interval.", threadLabels, nil),
		threadStackBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "thread", "stack_used_bytes"),
			"Peak stack bytes used by a thread with a registered stack.", threadLabels, nil),
		threadStackPct: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "thread", "stack_used_percent"),
			"Peak stack use as a share of registered capacity.", threadLabels, nil),
		threadStackLeft: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "thread", "stack_remaining_bytes"),
			"Stack bytes never touched by a thread with a registered stack.", threadLabels, nil),
		threadAbsent: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "thread", "absent_ticks"),
			"Consecutive ticks a tracked thread has been missing.", threadLabels, nil),

		ticks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sampler", "ticks_total"),
			"Completed sampling ticks.", nil, nil),
		tickDuration: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sampler", "last_tick_seconds"),
			"Duration of the last sampling tick.", nil, nil),
		activeSlots: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "registry", "active_slots"),
			"Registry slots holding a tracked thread.", nil, nil),
		capacity: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "registry", "capacity"),
			"Current registry capacity.", nil, nil),
		slotEvents: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "registry", "events_total"),
			"Registry lifecycle events by kind.", []string{"kind"}, nil),
		providerErrors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sampler", "provider_errors_total"),
			"Failed provider reads.", []string{"provider"}, nil),
		duplicates: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sampler", "duplicate_threads_total"),
			"Snapshot entries skipped because their identity repeated.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.cpuOverall, c.cpuCore, c.memoryBytes, c.memoryUsed, c.psramPresent,
		c.threadCPU, c.threadStackBytes, c.threadStackPct, c.threadStackLeft, c.threadAbsent,
		c.ticks, c.tickDuration, c.activeSlots, c.capacity, c.slotEvents, c.providerErrors, c.duplicates,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector. Nothing is emitted before the
// first tick.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.Snapshot()
	if snap == nil {
		return
	}
	c.collectSystem(ch, snap.System)
	c.collectThreads(ch, snap.Slots)
	c.collectStats(ch, snap.Stats)
}

func (c *Collector) collectSystem(ch chan<- prometheus.Metric, sys metrics.SystemSummary) {
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- constMetric(d, prometheus.GaugeValue, v, labels...)
	}

	gauge(c.cpuOverall, sys.CPUOverall)
	for i, load := range sys.CPUCores {
		gauge(c.cpuCore, load, strconv.Itoa(i))
	}

	gauge(c.memoryBytes, float64(sys.DRAMFree), "dram", "free")
	gauge(c.memoryBytes, float64(sys.DRAMMinFree), "dram", "min_free")
	gauge(c.memoryBytes, float64(sys.DRAMLargestBlock), "dram", "largest_block")
	gauge(c.memoryBytes, float64(sys.DRAMTotal), "dram", "total")
	gauge(c.memoryUsed, sys.DRAMUsedPercent, "dram")

	present := 0.0
	if sys.PSRAMPresent {
		present = 1
		gauge(c.memoryBytes, float64(sys.PSRAMFree), "psram", "free")
		gauge(c.memoryBytes, float64(sys.PSRAMTotal), "psram", "total")
		gauge(c.memoryUsed, sys.PSRAMUsedPercent, "psram")
	}
	gauge(c.psramPresent, present)
}

func (c *Collector) collectThreads(ch chan<- prometheus.Metric, slots []metrics.SlotSummary) {
	for _, s := range slots {
		labels := []string{strconv.Itoa(s.Index), s.DisplayName, coreLabel(s.Core)}
		ch <- constMetric(c.threadCPU, prometheus.GaugeValue, s.CPUPercent, labels...)
		ch <- constMetric(c.threadAbsent, prometheus.GaugeValue, float64(s.AbsentTicks), labels...)

		// stack figures are meaningless without a registered capacity
		if !s.Registered() {
			continue
		}
		ch <- constMetric(c.threadStackBytes, prometheus.GaugeValue, float64(s.StackBytes), labels...)
		ch <- constMetric(c.threadStackPct, prometheus.GaugeValue, s.StackPercent, labels...)
		ch <- constMetric(c.threadStackLeft, prometheus.GaugeValue, float64(s.StackRemaining), labels...)
	}
}

func (c *Collector) collectStats(ch chan<- prometheus.Metric, st metrics.SamplerStats) {
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- constMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(c.ticks, st.Ticks)
	ch <- constMetric(c.tickDuration, prometheus.GaugeValue, st.LastTickDuration.Seconds())
	ch <- constMetric(c.activeSlots, prometheus.GaugeValue, float64(st.ActiveSlots))
	ch <- constMetric(c.capacity, prometheus.GaugeValue, float64(st.Capacity))

	counter(c.slotEvents, st.Allocations, string(metrics.SlotAllocated))
	counter(c.slotEvents, st.Evictions, string(metrics.SlotEvicted))
	counter(c.slotEvents, st.RegistryFull, string(metrics.SlotRefused))
	counter(c.slotEvents, st.CounterWraps, string(metrics.SlotCounterWrap))

	counter(c.providerErrors, st.SchedulerErrors, "scheduler")
	counter(c.providerErrors, st.HostErrors, "host")
	counter(c.duplicates, st.DuplicateThreads)
}

// constMetric is MustNewConstMetric that reports errors through Gather.
func constMetric(d *prometheus.Desc, vt prometheus.ValueType, v float64, labels ...string) prometheus.Metric {
	m, err := prometheus.NewConstMetric(d, vt, v, labels...)
	if err != nil {
		return prometheus.NewInvalidMetric(d, err)
	}
	return m
}

func coreLabel(core int) string {
	if core == metrics.CoreAny {
		return "any"
	}
	return strconv.Itoa(core)
}
