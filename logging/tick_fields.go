package logging

import (
	"cmp"
	"slices"

	"sysmon/metrics"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// tickSummary marshals the system half of a snapshot.
type tickSummary struct {
	snap *metrics.Snapshot
}

func (t tickSummary) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	s := t.snap
	enc.AddUint64("tick", s.Tick)
	enc.AddFloat64("cpu_overall", round1(s.System.CPUOverall))
	if err := enc.AddArray("cpu_cores", percentArray(s.System.CPUCores)); err != nil {
		return err
	}
	enc.AddUint64("dram_free", s.System.DRAMFree)
	enc.AddUint64("dram_min_free", s.System.DRAMMinFree)
	enc.AddFloat64("dram_used_percent", round1(s.System.DRAMUsedPercent))
	if s.System.PSRAMPresent {
		enc.AddUint64("psram_free", s.System.PSRAMFree)
		enc.AddFloat64("psram_used_percent", round1(s.System.PSRAMUsedPercent))
	}
	enc.AddInt("active_slots", s.Stats.ActiveSlots)
	enc.AddInt("capacity", s.Stats.Capacity)
	enc.AddDuration("tick_duration", s.Stats.LastTickDuration)
	return nil
}

type percentArray []float64

func (p percentArray) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, v := range p {
		enc.AppendFloat64(round1(v))
	}
	return nil
}

// threadEntry marshals one slot for the top-consumers list.
type threadEntry metrics.SlotSummary

func (t threadEntry) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("name", t.DisplayName)
	enc.AddInt("slot", t.Index)
	enc.AddFloat64("cpu", round1(t.CPUPercent))
	if t.StackCapacity > 0 {
		enc.AddFloat64("stack", round1(t.StackPercent))
	}
	return nil
}

type threadList []metrics.SlotSummary

func (l threadList) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, s := range l {
		if err := enc.AppendObject(threadEntry(s)); err != nil {
			return err
		}
	}
	return nil
}

// TickFields returns structured fields summarizing snap: the system figures
// and the k busiest non-idle threads.
func TickFields(snap *metrics.Snapshot, k int) []zap.Field {
	if snap == nil {
		return nil
	}
	return []zap.Field{
		zap.Object("system", tickSummary{snap: snap}),
		zap.Array("top_threads", threadList(TopThreads(snap.Slots, k))),
	}
}

// StatsFields returns the sampler counters as fields.
func StatsFields(st metrics.SamplerStats) []zap.Field {
	return []zap.Field{
		zap.Uint64("ticks", st.Ticks),
		zap.Uint64("allocations", st.Allocations),
		zap.Uint64("evictions", st.Evictions),
		zap.Uint64("registry_full", st.RegistryFull),
		zap.Uint64("counter_wraps", st.CounterWraps),
		zap.Uint64("scheduler_errors", st.SchedulerErrors),
		zap.Uint64("host_errors", st.HostErrors),
	}
}

// TopThreads returns up to k non-idle slots by descending CPU, ties broken
// by slot index.
func TopThreads(slots []metrics.SlotSummary, k int) []metrics.SlotSummary {
	busy := make([]metrics.SlotSummary, 0, len(slots))
	for _, s := range slots {
		if !s.Idle {
			busy = append(busy, s)
		}
	}
	slices.SortFunc(busy, func(a, b metrics.SlotSummary) int {
		if c := cmp.Compare(b.CPUPercent, a.CPUPercent); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	if k >= 0 && len(busy) > k {
		busy = busy[:k]
	}
	return busy
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
