package debounce

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// DefaultDelay is used when a non-positive delay is given.
const DefaultDelay = 100 * time.Millisecond

// ErrDisposed is returned by Invoke after Dispose.
var ErrDisposed = errors.New("debounce: batcher disposed")

// Batcher coalesces payloads and delivers them in one handler call after a
// quiet period.
//
// Thread-safety: all methods are safe for concurrent use. Handler calls
// never overlap and batches are delivered in the order they were taken.
// The handler must not call Flush on its own batcher.
type Batcher[T any] struct {
	mu       sync.Mutex
	handler  func([]T)
	delay    time.Duration
	clock    clock.Clock
	logger   *zap.Logger
	timer    *clock.Timer
	pending  []T
	armed    bool
	seq      uint64 // generation; only the latest timer may flush
	disposed bool
	flushes  uint64
	ready    [][]T // taken batches waiting for the handler, oldest first

	// runMu serialises handler calls.
	runMu sync.Mutex
}

// Option configures a Batcher.
type Option func(*options)

type options struct {
	clock  clock.Clock
	logger *zap.Logger
}

// WithClock sets the clock used to schedule settle timers.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates a batcher that calls handler with every payload received
// since the previous flush once delay has passed without a new Invoke.
func New[T any](handler func([]T), delay time.Duration, opts ...Option) *Batcher[T] {
	o := options{
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	if handler == nil {
		handler = func([]T) {}
	}
	return &Batcher[T]{
		handler: handler,
		delay:   delay,
		clock:   o.clock,
		logger:  o.logger,
	}
}

// Invoke appends payload to the pending batch and restarts the settle timer.
func (b *Batcher[T]) Invoke(payload ...T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.disposed {
		return ErrDisposed
	}

	b.pending = append(b.pending, payload...)
	b.armed = true
	b.seq++
	gen := b.seq

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = b.clock.AfterFunc(b.delay, func() {
		b.fire(gen)
	})
	return nil
}

// fire is the settle timer callback for generation gen.
func (b *Batcher[T]) fire(gen uint64) {
	b.mu.Lock()
	// A stopped timer's callback may already be running; only the current
	// generation is allowed through.
	if b.disposed || !b.armed || gen != b.seq {
		b.mu.Unlock()
		return
	}
	b.takeLocked()
	b.mu.Unlock()

	b.drain()
}

// Flush delivers the pending batch immediately, cancelling the timer.
// It returns false if nothing was pending.
func (b *Batcher[T]) Flush() bool {
	b.mu.Lock()
	if b.disposed || !b.armed {
		b.mu.Unlock()
		return false
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.seq++
	b.takeLocked()
	b.mu.Unlock()

	b.drain()
	return true
}

// takeLocked moves the batcher back to Idle and queues the batch for the
// handler. Caller must hold mu.
func (b *Batcher[T]) takeLocked() {
	b.ready = append(b.ready, b.pending)
	b.pending = nil
	b.armed = false
	b.timer = nil
	b.flushes++
}

// drain runs the handler for every queued batch. A caller that finds runMu
// busy returns only after the current holder has delivered its batch too.
func (b *Batcher[T]) drain() {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	for {
		b.mu.Lock()
		// Dispose may have won while this call waited for a previous handler.
		if b.disposed || len(b.ready) == 0 {
			b.mu.Unlock()
			return
		}
		batch := b.ready[0]
		b.ready[0] = nil
		b.ready = b.ready[1:]
		b.mu.Unlock()

		b.logger.Debug("batch settled", zap.Int("size", len(batch)))
		b.handler(batch)
	}
}

// Dispose cancels any pending timer and drops the pending batch along with
// taken batches still waiting for the handler.
// The handler will not start after Dispose returns; a handler call already
// in progress is allowed to finish. Dispose is idempotent.
func (b *Batcher[T]) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.disposed {
		return
	}
	b.disposed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.seq++
	if n := len(b.pending); n > 0 {
		b.logger.Debug("pending batch dropped", zap.Int("size", n))
	}
	b.pending = nil
	b.ready = nil
	b.armed = false
}

// IsPending returns true while a settle timer is running.
func (b *Batcher[T]) IsPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.armed
}

// Pending returns the number of payloads waiting for the next flush.
func (b *Batcher[T]) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flushes returns how many batches have been delivered.
func (b *Batcher[T]) Flushes() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushes
}

// IsDisposed reports whether Dispose has been called.
func (b *Batcher[T]) IsDisposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

// Delay returns the settle delay.
func (b *Batcher[T]) Delay() time.Duration {
	return b.delay
}
