// Package metrics provides pure functions converting raw counters to usage figures.
package metrics

// RunDelta returns current-prev. A counter that went backwards (wraparound or
// scheduler reset) yields 0 with wrapped set.
func RunDelta(prev, current uint64) (delta uint64, wrapped bool) {
	if current < prev {
		return 0, true
	}
	return current - prev, false
}

// CPUPercent converts a run-tick delta over an elapsed wall-tick delta into a
// percentage clamped to [0,100]. A zero wall delta yields 0.
func CPUPercent(runDelta, wallDelta uint64) float64 {
	if wallDelta == 0 {
		return 0
	}
	return clampPercent(float64(runDelta) / float64(wallDelta) * 100)
}

// StackUsage returns the used stack bytes and percent for a registered capacity
// and a high water mark expressed in stack words. Unregistered stacks
// (capacity 0) report zero usage.
func StackUsage(capacity uint32, hwmWords uint32, wordSize int) (usedBytes uint64, percent float64) {
	if capacity == 0 {
		return 0, 0
	}
	free := uint64(hwmWords) * uint64(wordSize)
	if free >= uint64(capacity) {
		return 0, 0
	}
	usedBytes = uint64(capacity) - free
	percent = clampPercent((1 - float64(free)/float64(capacity)) * 100)
	return usedBytes, percent
}

// StackRemaining returns the free stack bytes described by a high water mark,
// or 0 when the stack is unregistered.
func StackRemaining(capacity uint32, hwmWords uint32, wordSize int) uint64 {
	if capacity == 0 {
		return 0
	}
	return uint64(hwmWords) * uint64(wordSize)
}

// UsedPercent returns (total-free)/total*100 clamped, or 0 when total is 0.
func UsedPercent(free, total uint64) float64 {
	if total == 0 || free >= total {
		return 0
	}
	return clampPercent(float64(total-free) / float64(total) * 100)
}

// MeanPercent returns the mean of values, or 0 for an empty slice.
func MeanPercent(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return clampPercent(sum / float64(len(values)))
}

func clampPercent(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
