package db

import (
	"context"
	"fmt"
	"time"

	"sysmon/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SlotEventRecord is one row of the slot_events table.
type SlotEventRecord struct {
	ID        int64                 // Auto-incremented primary key
	SessionID string                // Agent run that recorded the event
	Kind      metrics.SlotEventKind // allocated, evicted, registry_full, ...
	Tick      uint64                // Sampler tick the event happened on
	Slot      int                   // Registry index, -1 when no slot was involved
	Identity  metrics.ThreadIdentity
	Name      string
	Detail    string
	At        time.Time
}

const insertSlotEvent = `
	INSERT INTO slot_events (
		session_id, kind, tick, slot, thread_handle, thread_id, name, detail, occurred_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Journal records registry lifecycle events to SQLite.
//
// Record is called from the sampler's producer and never blocks: events are
// queued to an AsyncWriter and inserted by its goroutine. Every row carries a
// per-run session ID.
type Journal struct {
	db      *Database
	writer  *AsyncWriter
	session string
	logger  *zap.Logger
}

// Compile-time check that Journal can receive sampler events
var _ metrics.EventSink = (*Journal)(nil)

// NewJournal creates a journal over an open database and starts its writer.
func NewJournal(database *Database, logger *zap.Logger, config AsyncWriterConfig) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &Journal{
		db:      database,
		session: uuid.NewString(),
		logger:  logger.With(zap.String("component", "journal")),
	}
	j.writer = NewAsyncWriterWithConfig(j.insert, config)
	j.writer.Start()
	return j
}

// SessionID returns the ID stamped on rows written by this journal.
func (j *Journal) SessionID() string {
	return j.session
}

// Record queues an event. Events are dropped when the queue is full.
func (j *Journal) Record(event metrics.SlotEvent) {
	if !j.writer.Write(event) {
		j.logger.Debug("Journal queue full, event dropped",
			zap.String("kind", string(event.Kind)),
			zap.Uint64("dropped_total", j.writer.Dropped()))
	}
}

func (j *Journal) insert(op WriteOperation) error {
	event, ok := op.Data.(metrics.SlotEvent)
	if !ok {
		return fmt.Errorf("unexpected journal payload %T", op.Data)
	}
	at := event.At
	if at.IsZero() {
		at = op.Timestamp
	}

	_, err := j.db.ExecContext(context.Background(), insertSlotEvent,
		j.session,
		string(event.Kind),
		int64(event.Tick),
		event.Slot,
		int64(event.Identity.Handle),
		int64(event.Identity.ID),
		event.Name,
		event.Detail,
		at.UnixNano(),
	)
	if err != nil {
		j.logger.Warn("Failed to write journal event",
			zap.String("kind", string(event.Kind)),
			zap.Error(err))
		return err
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]SlotEventRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, kind, tick, slot, thread_handle, thread_id, name, detail, occurred_at
		FROM slot_events
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query slot events: %w", err)
	}
	defer rows.Close()

	var records []SlotEventRecord
	for rows.Next() {
		var (
			r              SlotEventRecord
			kind           string
			tick, handle   int64
			threadID, atNs int64
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &kind, &tick, &r.Slot, &handle, &threadID,
			&r.Name, &r.Detail, &atNs); err != nil {
			return nil, fmt.Errorf("failed to scan slot event: %w", err)
		}
		r.Kind = metrics.SlotEventKind(kind)
		r.Tick = uint64(tick)
		r.Identity = metrics.ThreadIdentity{Handle: uint64(handle), ID: metrics.ThreadID(threadID)}
		r.At = time.Unix(0, atNs)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate slot events: %w", err)
	}
	return records, nil
}

// CountByKind returns the number of journaled events per kind.
func (j *Journal) CountByKind(ctx context.Context) (map[metrics.SlotEventKind]int64, error) {
	rows, err := j.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM slot_events GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("failed to count slot events: %w", err)
	}
	defer rows.Close()

	counts := make(map[metrics.SlotEventKind]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[metrics.SlotEventKind(kind)] = n
	}
	return counts, rows.Err()
}

// Dropped returns how many events were discarded because the queue was full.
func (j *Journal) Dropped() uint64 {
	return j.writer.Dropped()
}

// Close drains queued events. It does not close the database.
func (j *Journal) Close() error {
	if !j.writer.Stop() {
		return fmt.Errorf("journal drain timed out with %d events pending", j.writer.Pending())
	}
	if dropped := j.writer.Dropped(); dropped > 0 {
		j.logger.Warn("Journal dropped events", zap.Uint64("dropped", dropped))
	}
	return nil
}
