package main

import (
	"context"

	"sysmon/logging"
	"sysmon/metrics"
	"sysmon/stackreg"

	"go.uber.org/zap"
)

type wrapFunc func(ctx context.Context, name string, fn func(context.Context) error) error

// summaryReporter logs a summary of every Kth snapshot and drops stack
// registrations whose thread has exited. It reads snapshots on its own
// goroutine; OnTick only hands them over.
type summaryReporter struct {
	every  int
	topK   int
	logger *logging.Logger
	stacks *stackreg.Registry
	alive  func(metrics.ThreadIdentity) bool
	wrap   wrapFunc

	pending chan *metrics.Snapshot
}

func newSummaryReporter(every, topK int, logger *logging.Logger, stacks *stackreg.Registry,
	alive func(metrics.ThreadIdentity) bool, wrap wrapFunc) *summaryReporter {
	if wrap == nil {
		wrap = func(ctx context.Context, _ string, fn func(context.Context) error) error { return fn(ctx) }
	}
	return &summaryReporter{
		every:   every,
		topK:    topK,
		logger:  logger,
		stacks:  stacks,
		alive:   alive,
		wrap:    wrap,
		pending: make(chan *metrics.Snapshot, 1),
	}
}

// OnTick runs on the producer. It never blocks: a snapshot arriving while
// the previous one is still queued is dropped.
func (r *summaryReporter) OnTick(snap *metrics.Snapshot) {
	if r.every <= 0 || snap == nil || snap.Tick%uint64(r.every) != 0 {
		return
	}
	select {
	case r.pending <- snap:
	default:
	}
}

// Run reports until ctx is cancelled.
func (r *summaryReporter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-r.pending:
			err := r.wrap(ctx, "summary", func(context.Context) error {
				r.report(snap)
				return nil
			})
			if err != nil {
				return
			}
		}
	}
}

func (r *summaryReporter) report(snap *metrics.Snapshot) {
	fields := logging.TickFields(snap, r.topK)
	fields = append(fields, logging.StatsFields(snap.Stats)...)
	r.logger.Info("Sampler summary", fields...)

	if r.stacks == nil || r.alive == nil {
		return
	}
	if removed := r.stacks.Cleanup(r.alive); removed > 0 {
		r.logger.Debug("Dropped stack registrations of exited threads",
			zap.Int("removed", removed), zap.Int("remaining", r.stacks.Len()))
	}
}
