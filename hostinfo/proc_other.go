//go:build !linux

package hostinfo

import (
	"context"
	"errors"

	"sysmon/metrics"
)

// ErrUnsupported is returned on platforms without a /proc thread view.
var ErrUnsupported = errors.New("proc scheduler source is only available on linux")

// ProcSource is unavailable on this platform.
type ProcSource struct{}

// NewProcSource always fails on this platform.
func NewProcSource(pid int) (*ProcSource, error) {
	return nil, ErrUnsupported
}

// PID returns 0.
func (s *ProcSource) PID() int { return 0 }

// Snapshot always fails on this platform.
func (s *ProcSource) Snapshot(ctx context.Context) (metrics.SchedulerSnapshot, error) {
	return metrics.SchedulerSnapshot{}, ErrUnsupported
}

// Alive always reports false on this platform.
func (s *ProcSource) Alive(id metrics.ThreadIdentity) bool { return false }
