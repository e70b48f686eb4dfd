package db

import (
	"context"
	"testing"
	"time"

	"sysmon/metrics"

	"go.uber.org/zap/zaptest"
)

func TestJournal_RecordAndRecent(t *testing.T) {
	database := openTestDatabase(t)
	journal := NewJournal(database, zaptest.NewLogger(t), DefaultAsyncWriterConfig())

	at := time.Unix(1700000000, 42)
	journal.Record(metrics.SlotEvent{
		Kind: metrics.SlotAllocated, Tick: 1, Slot: 0,
		Identity: metrics.ThreadIdentity{Handle: 0x3ffb0000, ID: 7},
		Name:     "worker", At: at,
	})
	journal.Record(metrics.SlotEvent{
		Kind: metrics.SlotEvicted, Tick: 5, Slot: 0,
		Identity: metrics.ThreadIdentity{Handle: 0x3ffb0000, ID: 7},
		Name:     "worker", At: at.Add(4 * time.Second),
	})
	journal.Record(metrics.SlotEvent{
		Kind: metrics.SlotRefused, Tick: 5, Slot: -1,
		Identity: metrics.ThreadIdentity{Handle: 9, ID: 9},
		Name:     "late", Detail: "capacity 4",
	})

	if err := journal.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	records, err := journal.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	newest := records[0]
	if newest.Kind != metrics.SlotRefused || newest.Slot != -1 || newest.Detail != "capacity 4" {
		t.Errorf("unexpected newest record: %+v", newest)
	}
	if newest.At.IsZero() {
		t.Error("expected missing event time filled from queue time")
	}

	oldest := records[2]
	if oldest.Identity != (metrics.ThreadIdentity{Handle: 0x3ffb0000, ID: 7}) {
		t.Errorf("expected identity round trip, got %+v", oldest.Identity)
	}
	if !oldest.At.Equal(at) {
		t.Errorf("expected time %v, got %v", at, oldest.At)
	}
	for _, r := range records {
		if r.SessionID != journal.SessionID() {
			t.Errorf("expected session %s, got %s", journal.SessionID(), r.SessionID)
		}
	}

	limited, _ := journal.Recent(context.Background(), 1)
	if len(limited) != 1 {
		t.Errorf("expected limit 1 honoured, got %d", len(limited))
	}
}

func TestJournal_CountByKind(t *testing.T) {
	database := openTestDatabase(t)
	journal := NewJournal(database, nil, DefaultAsyncWriterConfig())

	for i := 0; i < 3; i++ {
		journal.Record(metrics.SlotEvent{Kind: metrics.SlotAllocated, Slot: i})
	}
	journal.Record(metrics.SlotEvent{Kind: metrics.SlotEvicted, Slot: 1})
	journal.Close()

	counts, err := journal.CountByKind(context.Background())
	if err != nil {
		t.Fatalf("CountByKind() error = %v", err)
	}
	if counts[metrics.SlotAllocated] != 3 || counts[metrics.SlotEvicted] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
	if _, ok := counts[metrics.SlotRefused]; ok {
		t.Error("expected no registry_full entry")
	}
}

func TestJournal_RecordAfterClose(t *testing.T) {
	database := openTestDatabase(t)
	journal := NewJournal(database, nil, DefaultAsyncWriterConfig())
	journal.Close()

	journal.Record(metrics.SlotEvent{Kind: metrics.SlotAllocated})
	if journal.Dropped() != 1 {
		t.Errorf("expected 1 dropped event, got %d", journal.Dropped())
	}
}

// TestJournal_SamplerSink wires the journal as the sampler's event sink.
func TestJournal_SamplerSink(t *testing.T) {
	database := openTestDatabase(t)
	journal := NewJournal(database, nil, DefaultAsyncWriterConfig())

	config := metrics.DefaultSamplerConfig()
	config.Cores = 1
	config.MonitorCore = -1
	config.EvictionThreshold = 1

	sched := metrics.NewMockScheduler(
		metrics.SchedulerSnapshot{TotalRunTicks: 100, Threads: []metrics.ThreadSample{
			{Identity: metrics.ThreadIdentity{Handle: 1, ID: 1}, Name: "a", Core: 0},
		}},
		metrics.SchedulerSnapshot{TotalRunTicks: 200},
		metrics.SchedulerSnapshot{TotalRunTicks: 300},
	)
	sampler := metrics.NewSampler(config, sched, metrics.NewMockHost(metrics.HostSample{}),
		metrics.WithEventSink(journal))

	for i := 0; i < 3; i++ {
		if _, err := sampler.TickOnce(context.Background()); err != nil {
			t.Fatalf("TickOnce() error = %v", err)
		}
	}
	sampler.Stop()
	journal.Close()

	counts, err := journal.CountByKind(context.Background())
	if err != nil {
		t.Fatalf("CountByKind() error = %v", err)
	}
	if counts[metrics.SlotAllocated] != 1 || counts[metrics.SlotEvicted] != 1 {
		t.Errorf("expected one allocation and one eviction, got %v", counts)
	}
}
