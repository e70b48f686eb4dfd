// Package metrics provides the GlobalSeries molecule for system-wide series.
package metrics

// GlobalSeries holds the system-wide CPU and memory series.
// All series share one write position advanced once per tick.
type GlobalSeries struct {
	cpuOverall *Ring[float64]
	cpuCores   []*Ring[float64]

	dramFree         *Ring[float64]
	dramMinFree      *Ring[float64]
	dramLargestBlock *Ring[float64]
	dramTotal        *Ring[float64]
	dramUsedPercent  *Ring[float64]

	psramFree        *Ring[float64]
	psramTotal       *Ring[float64]
	psramUsedPercent *Ring[float64]

	latest     SystemSummary
	minFree    uint64
	minFreeSet bool
}

// NewGlobalSeries creates the system series for the given core count.
func NewGlobalSeries(cores, sampleCount int) *GlobalSeries {
	if cores < 1 {
		cores = 1
	}
	g := &GlobalSeries{
		cpuOverall:       NewRing[float64](sampleCount),
		cpuCores:         make([]*Ring[float64], cores),
		dramFree:         NewRing[float64](sampleCount),
		dramMinFree:      NewRing[float64](sampleCount),
		dramLargestBlock: NewRing[float64](sampleCount),
		dramTotal:        NewRing[float64](sampleCount),
		dramUsedPercent:  NewRing[float64](sampleCount),
		psramFree:        NewRing[float64](sampleCount),
		psramTotal:       NewRing[float64](sampleCount),
		psramUsedPercent: NewRing[float64](sampleCount),
	}
	for i := range g.cpuCores {
		g.cpuCores[i] = NewRing[float64](sampleCount)
	}
	g.latest.CPUCores = make([]float64, cores)
	return g
}

// Cores returns the number of tracked cores.
func (g *GlobalSeries) Cores() int {
	return len(g.cpuCores)
}

// Update writes one sample to every system series.
//
// coreLoad holds per-core CPU percent already derived by the caller; missing
// entries are written as 0. A nil host leaves memory series at zero with
// PSRAM marked absent.
func (g *GlobalSeries) Update(coreLoad []float64, host *HostSample) {
	cores := make([]float64, len(g.cpuCores))
	for i := range cores {
		if i < len(coreLoad) {
			cores[i] = clampPercent(coreLoad[i])
		}
		g.cpuCores[i].Write(cores[i])
	}
	overall := MeanPercent(cores)
	g.cpuOverall.Write(overall)

	var h HostSample
	if host != nil {
		h = *host
	}
	if !h.PSRAMPresent {
		h.PSRAMFree, h.PSRAMTotal = 0, 0
	}

	if host != nil && (!g.minFreeSet || h.DRAMFree < g.minFree) {
		g.minFree = h.DRAMFree
		g.minFreeSet = true
	}

	dramUsed := UsedPercent(h.DRAMFree, h.DRAMTotal)
	psramUsed := UsedPercent(h.PSRAMFree, h.PSRAMTotal)

	g.dramFree.Write(float64(h.DRAMFree))
	g.dramMinFree.Write(float64(g.minFree))
	g.dramLargestBlock.Write(float64(h.DRAMLargestBlock))
	g.dramTotal.Write(float64(h.DRAMTotal))
	g.dramUsedPercent.Write(dramUsed)
	g.psramFree.Write(float64(h.PSRAMFree))
	g.psramTotal.Write(float64(h.PSRAMTotal))
	g.psramUsedPercent.Write(psramUsed)

	g.latest = SystemSummary{
		CPUOverall:       overall,
		CPUCores:         cores,
		DRAMFree:         h.DRAMFree,
		DRAMMinFree:      g.minFree,
		DRAMLargestBlock: h.DRAMLargestBlock,
		DRAMTotal:        h.DRAMTotal,
		DRAMUsedPercent:  dramUsed,
		PSRAMPresent:     h.PSRAMPresent,
		PSRAMFree:        h.PSRAMFree,
		PSRAMTotal:       h.PSRAMTotal,
		PSRAMUsedPercent: psramUsed,
	}
}

// Latest returns the summary written by the last Update.
func (g *GlobalSeries) Latest() SystemSummary {
	out := g.latest
	out.CPUCores = append([]float64(nil), g.latest.CPUCores...)
	return out
}

// ring returns the series for a system SeriesID, or nil when it does not exist.
func (g *GlobalSeries) ring(id SeriesID) *Ring[float64] {
	switch id.Kind {
	case SeriesCPUOverall:
		return g.cpuOverall
	case SeriesCPUCore:
		if id.Index < 0 || id.Index >= len(g.cpuCores) {
			return nil
		}
		return g.cpuCores[id.Index]
	case SeriesDRAMFree:
		return g.dramFree
	case SeriesDRAMMinFree:
		return g.dramMinFree
	case SeriesDRAMLargestBlock:
		return g.dramLargestBlock
	case SeriesDRAMTotal:
		return g.dramTotal
	case SeriesDRAMUsedPercent:
		return g.dramUsedPercent
	case SeriesPSRAMFree:
		return g.psramFree
	case SeriesPSRAMTotal:
		return g.psramTotal
	case SeriesPSRAMUsedPercent:
		return g.psramUsedPercent
	default:
		return nil
	}
}

// seriesIDs returns every system series ID in a stable order.
func (g *GlobalSeries) seriesIDs() []SeriesID {
	ids := []SeriesID{System(SeriesCPUOverall)}
	for i := range g.cpuCores {
		ids = append(ids, Core(i))
	}
	return append(ids,
		System(SeriesDRAMFree),
		System(SeriesDRAMMinFree),
		System(SeriesDRAMLargestBlock),
		System(SeriesDRAMTotal),
		System(SeriesDRAMUsedPercent),
		System(SeriesPSRAMFree),
		System(SeriesPSRAMTotal),
		System(SeriesPSRAMUsedPercent),
	)
}
