package db

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultChannelCapacity is the default buffer size for pending writes.
const DefaultChannelCapacity = 256

// DefaultDrainTimeout bounds how long Stop waits for queued writes.
const DefaultDrainTimeout = 5 * time.Second

// WriteOperation is one queued write.
type WriteOperation struct {
	// Data holds the write payload
	Data any
	// Timestamp when the operation was queued
	Timestamp time.Time
}

// WriteHandler processes a write operation. Implementations log their own errors.
type WriteHandler func(op WriteOperation) error

// AsyncWriterConfig holds configuration for the async writer.
type AsyncWriterConfig struct {
	// ChannelCapacity is the buffer size for pending writes
	ChannelCapacity int
	// DrainTimeout is the maximum wait time during shutdown
	DrainTimeout time.Duration
}

// DefaultAsyncWriterConfig returns the default configuration.
func DefaultAsyncWriterConfig() AsyncWriterConfig {
	return AsyncWriterConfig{
		ChannelCapacity: DefaultChannelCapacity,
		DrainTimeout:    DefaultDrainTimeout,
	}
}

// AsyncWriter hands writes to a background goroutine through a buffered
// channel. Write never blocks: when the buffer is full the write is dropped
// and counted.
type AsyncWriter struct {
	writeChan    chan WriteOperation
	handler      WriteHandler
	drainTimeout time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	stopped bool

	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewAsyncWriter creates a writer with default configuration.
func NewAsyncWriter(handler WriteHandler) *AsyncWriter {
	return NewAsyncWriterWithConfig(handler, DefaultAsyncWriterConfig())
}

// NewAsyncWriterWithConfig creates a writer with custom configuration.
func NewAsyncWriterWithConfig(handler WriteHandler, config AsyncWriterConfig) *AsyncWriter {
	if config.ChannelCapacity < 1 {
		config.ChannelCapacity = DefaultChannelCapacity
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = DefaultDrainTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &AsyncWriter{
		writeChan:    make(chan WriteOperation, config.ChannelCapacity),
		handler:      handler,
		drainTimeout: config.DrainTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start begins background processing. Calling it again is a no-op.
func (w *AsyncWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started || w.stopped {
		return
	}
	w.started = true
	w.wg.Add(1)
	go w.processWrites()
}

func (w *AsyncWriter) processWrites() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			w.drainChannel()
			return
		case op := <-w.writeChan:
			w.handle(op)
		}
	}
}

// drainChannel processes whatever is still buffered.
func (w *AsyncWriter) drainChannel() {
	for {
		select {
		case op := <-w.writeChan:
			w.handle(op)
		default:
			return
		}
	}
}

func (w *AsyncWriter) handle(op WriteOperation) {
	if err := w.handler(op); err != nil {
		w.failed.Add(1)
	}
}

// Write queues data. It returns false, counting a drop, when the buffer is
// full or the writer has stopped.
func (w *AsyncWriter) Write(data any) bool {
	if w.ctx.Err() != nil {
		w.dropped.Add(1)
		return false
	}

	select {
	case w.writeChan <- WriteOperation{Data: data, Timestamp: time.Now()}:
		return true
	default:
		w.dropped.Add(1)
		return false
	}
}

// Pending returns the number of operations waiting in the buffer.
func (w *AsyncWriter) Pending() int {
	return len(w.writeChan)
}

// Dropped returns how many writes were discarded.
func (w *AsyncWriter) Dropped() uint64 {
	return w.dropped.Load()
}

// Failed returns how many handled writes returned an error.
func (w *AsyncWriter) Failed() uint64 {
	return w.failed.Load()
}

// Stop drains pending writes, waiting at most the configured drain timeout.
// It returns false if the drain timed out.
func (w *AsyncWriter) Stop() bool {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(w.drainTimeout):
		return false
	}
}

// IsStarted returns whether the background processor is running.
func (w *AsyncWriter) IsStarted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started && !w.stopped
}
