// Package hostinfo provides the providers the sampler consumes: a Linux
// scheduler source reading a process's threads from /proc, a host reader for
// CPU and memory, and a simulator that reproduces an embedded-style workload.
package hostinfo

import (
	"context"
	"fmt"
	"sync"

	"sysmon/metrics"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// HostReader reads host CPU and memory through gopsutil.
//
// Per-core busy fractions are computed from the change in cumulative CPU
// times between calls, so the first call reports every core idle. Physical
// memory is reported as DRAM and swap as PSRAM (present only when configured).
type HostReader struct {
	mu    sync.Mutex
	cores int
	prev  []cpu.TimesStat

	// replaceable for tests
	times   func(ctx context.Context, percpu bool) ([]cpu.TimesStat, error)
	virtual func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	swap    func(ctx context.Context) (*mem.SwapMemoryStat, error)
}

// Compile-time check that HostReader is a host provider
var _ metrics.HostSource = (*HostReader)(nil)

// NewHostReader creates a reader reporting at most cores per-core values.
// A non-positive cores reports every core the host has.
func NewHostReader(cores int) *HostReader {
	return &HostReader{
		cores:   cores,
		times:   cpu.TimesWithContext,
		virtual: mem.VirtualMemoryWithContext,
		swap:    mem.SwapMemoryWithContext,
	}
}

// ReadHost returns current memory figures and per-core busy fractions.
func (h *HostReader) ReadHost(ctx context.Context) (metrics.HostSample, error) {
	vm, err := h.virtual(ctx)
	if err != nil {
		return metrics.HostSample{}, fmt.Errorf("virtual memory: %w", err)
	}

	sample := metrics.HostSample{
		DRAMFree:         vm.Available,
		DRAMLargestBlock: vm.Free,
		DRAMTotal:        vm.Total,
	}

	if sw, err := h.swap(ctx); err == nil && sw.Total > 0 {
		sample.PSRAMPresent = true
		sample.PSRAMFree = sw.Free
		sample.PSRAMTotal = sw.Total
	}

	busy, err := h.coreBusy(ctx)
	if err != nil {
		return metrics.HostSample{}, fmt.Errorf("cpu times: %w", err)
	}
	sample.CoreBusy = busy
	return sample, nil
}

func (h *HostReader) coreBusy(ctx context.Context) ([]float64, error) {
	times, err := h.times(ctx, true)
	if err != nil {
		return nil, err
	}
	if h.cores > 0 && len(times) > h.cores {
		times = times[:h.cores]
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	busy := make([]float64, len(times))
	if len(h.prev) == len(times) {
		for i := range times {
			busy[i] = busyFraction(h.prev[i], times[i])
		}
	}
	h.prev = times
	return busy, nil
}

// busyFraction returns the non-idle share of CPU time between two readings.
func busyFraction(prev, cur cpu.TimesStat) float64 {
	total := totalTime(cur) - totalTime(prev)
	if total <= 0 {
		return 0
	}
	idle := (cur.Idle + cur.Iowait) - (prev.Idle + prev.Iowait)
	frac := (total - idle) / total
	switch {
	case frac < 0:
		return 0
	case frac > 1:
		return 1
	default:
		return frac
	}
}

func totalTime(t cpu.TimesStat) float64 {
	return t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
}
