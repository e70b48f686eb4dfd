//go:build linux

package hostinfo

import (
	"context"
	"fmt"
	"os"
	"time"

	"sysmon/metrics"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// ProcSource samples the threads of one Linux process.
//
// Threads and their stat fields are read through procfs. Run ticks and the
// elapsed counter are microseconds of CPU and monotonic wall time respectively.
type ProcSource struct {
	pid   int
	fs    procfs.FS
	start time.Time
}

// NewProcSource creates a source for pid. A pid of 0 samples the current process.
func NewProcSource(pid int) (*ProcSource, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("open procfs: %w", err)
	}
	return newProcSource(fs, pid)
}

func newProcSource(fs procfs.FS, pid int) (*ProcSource, error) {
	if pid == 0 {
		pid = os.Getpid()
	}
	if _, err := fs.Proc(pid); err != nil {
		return nil, fmt.Errorf("open process %d: %w", pid, err)
	}
	return &ProcSource{pid: pid, fs: fs, start: time.Now()}, nil
}

// PID returns the sampled process ID.
func (s *ProcSource) PID() int {
	return s.pid
}

// Snapshot enumerates the live threads of the process.
func (s *ProcSource) Snapshot(ctx context.Context) (metrics.SchedulerSnapshot, error) {
	threads, err := s.fs.AllThreads(s.pid)
	if err != nil {
		return metrics.SchedulerSnapshot{}, fmt.Errorf("list threads of %d: %w", s.pid, err)
	}

	snap := metrics.SchedulerSnapshot{
		Threads:       make([]metrics.ThreadSample, 0, len(threads)),
		TotalRunTicks: uint64(time.Since(s.start).Microseconds()),
	}

	for _, t := range threads {
		if err := ctx.Err(); err != nil {
			return metrics.SchedulerSnapshot{}, err
		}
		st, err := t.Stat()
		if err != nil {
			// exited after enumeration
			continue
		}
		snap.Threads = append(snap.Threads, metrics.ThreadSample{
			Identity:        metrics.ThreadIdentity{Handle: st.Starttime, ID: metrics.ThreadID(t.PID)},
			Name:            st.Comm,
			CurrentPriority: st.Priority,
			BasePriority:    20 + st.Nice,
			Core:            pinnedCore(t.PID),
			RunTicks:        uint64(st.CPUTime() * 1e6),
		})
	}
	return snap, nil
}

// Alive reports whether the thread behind id still exists.
func (s *ProcSource) Alive(id metrics.ThreadIdentity) bool {
	t, err := s.fs.Thread(s.pid, int(id.ID))
	if err != nil {
		return false
	}
	st, err := t.Stat()
	return err == nil && st.Starttime == id.Handle
}

// cpuSetSize matches CPU_SETSIZE.
const cpuSetSize = 1024

// pinnedCore returns the only CPU in the thread's affinity mask, or CoreAny.
func pinnedCore(tid int) int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(tid, &set); err != nil || set.Count() != 1 {
		return metrics.CoreAny
	}
	for cpu := 0; cpu < cpuSetSize; cpu++ {
		if set.IsSet(cpu) {
			return cpu
		}
	}
	return metrics.CoreAny
}
