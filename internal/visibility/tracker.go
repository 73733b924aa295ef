package visibility

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/dshills/scrollspy/internal/debounce"
	"github.com/dshills/scrollspy/internal/event"
	"github.com/dshills/scrollspy/internal/event/events"
)

// Source is recorded in the metadata of every event the tracker publishes.
const Source = "visibility"

type state uint8

const (
	stateIdle state = iota
	stateActive
	stateClosed
)

// Tracker publishes settled visibility transitions of the items in a root.
type Tracker struct {
	mu       sync.Mutex
	state    state
	bus      Dispatcher
	root     Root
	factory  ObserverFactory
	config   Config
	clock    clock.Clock
	logger   *zap.Logger
	ctx      context.Context
	batcher  *debounce.Batcher[Entry]
	observer Observer
	observed int

	// closing stops a publish pass that is already running.
	closing atomic.Bool

	batches    atomic.Uint64
	dispatched atomic.Uint64
	failures   atomic.Uint64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the clock used by the settle timer.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithLogger sets the tracker's logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates an idle tracker. Nothing is observed until Activate.
func New(bus Dispatcher, root Root, factory ObserverFactory, cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		bus:     bus,
		root:    root,
		factory: factory,
		config:  cfg.withDefaults(),
		clock:   clock.New(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Activate queries the root for items and starts observing them.
//
// It returns ErrCapabilityUnavailable when no factory was given. A selector
// that matches nothing leaves the tracker active with nothing observed.
// ctx supplies values for published events; its cancellation is ignored.
func (t *Tracker) Activate(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case stateActive:
		return ErrAlreadyActive
	case stateClosed:
		return ErrClosed
	}
	if err := t.config.Validate(); err != nil {
		return err
	}
	if t.factory == nil {
		return ErrCapabilityUnavailable
	}
	if t.root == nil {
		return fmt.Errorf("%w: nil root", ErrInvalidConfig)
	}

	items, err := t.root.QueryAll(t.config.ItemSelector)
	if err != nil {
		return fmt.Errorf("query %q: %w", t.config.ItemSelector, err)
	}
	if len(items) == 0 {
		t.logger.Debug("no items matched", zap.String("selector", t.config.ItemSelector))
		t.state = stateActive
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	t.ctx = event.WithSource(context.WithoutCancel(ctx), Source)
	t.batcher = debounce.New(t.publish, t.config.Delay,
		debounce.WithClock(t.clock),
		debounce.WithLogger(t.logger))

	batcher := t.batcher
	observer, err := t.factory(t.root, t.config.ObserverConfig.Clone(), func(entries []Entry) {
		if len(entries) == 0 {
			return
		}
		if err := batcher.Invoke(entries...); err != nil {
			t.logger.Debug("entries after close dropped", zap.Int("count", len(entries)))
		}
	})
	if err != nil {
		batcher.Dispose()
		t.batcher = nil
		return fmt.Errorf("create observer: %w", err)
	}

	for _, el := range items {
		if err := observer.Observe(el); err != nil {
			batcher.Dispose()
			observer.Disconnect()
			t.batcher = nil
			return fmt.Errorf("observe %q: %w", el.ID(), err)
		}
	}

	t.observer = observer
	t.observed = len(items)
	t.state = stateActive
	t.logger.Debug("tracker activated",
		zap.String("selector", t.config.ItemSelector),
		zap.Int("items", len(items)),
		zap.Duration("delay", t.config.Delay))
	return nil
}

// publish dispatches one CHANGE_ITEM per entry, in order. Entries whose
// target has no id are published with an empty id. A listener panic ends
// the pass and is logged; it never reaches the timer goroutine.
func (t *Tracker) publish(batch []Entry) {
	t.batches.Add(1)
	defer func() {
		if r := recover(); r != nil {
			t.failures.Add(1)
			t.logger.Error("change item listener panicked",
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()
	for _, entry := range batch {
		if t.closing.Load() {
			t.logger.Debug("publish stopped by close")
			return
		}
		id := entry.TargetID()
		change := events.ItemChange{ID: id, ShowFlag: entry.IsIntersecting}
		t.dispatched.Add(1)
		if err := t.bus.Dispatch(t.ctx, events.ChangeItem, change); err != nil {
			t.failures.Add(1)
			t.logger.Warn("change item dispatch failed",
				zap.String("id", id),
				zap.Bool("show", entry.IsIntersecting),
				zap.Error(err))
		}
	}
}

// Close drops pending entries and disconnects the observer. A publish pass
// in progress stops before its next dispatch. Close is idempotent and always
// returns nil.
func (t *Tracker) Close() error {
	t.mu.Lock()
	if t.state == stateClosed {
		t.mu.Unlock()
		return nil
	}
	t.state = stateClosed
	t.closing.Store(true)
	batcher, observer := t.batcher, t.observer
	t.batcher, t.observer = nil, nil
	t.mu.Unlock()

	if batcher != nil {
		batcher.Dispose()
	}
	if observer != nil {
		observer.Disconnect()
	}
	t.logger.Debug("tracker closed")
	return nil
}

// IsActive reports whether Activate succeeded and Close was not called.
func (t *Tracker) IsActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == stateActive
}

// Flush publishes pending entries without waiting for the settle delay.
func (t *Tracker) Flush() bool {
	t.mu.Lock()
	batcher := t.batcher
	t.mu.Unlock()
	if batcher == nil {
		return false
	}
	return batcher.Flush()
}

// Config returns the effective configuration.
func (t *Tracker) Config() Config {
	return t.config
}

// Stats describes tracker activity.
type Stats struct {
	Observed   int
	Pending    int
	Batches    uint64
	Dispatched uint64
	Failures   uint64
}

// Stats returns a snapshot of tracker counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	s := Stats{Observed: t.observed}
	if t.batcher != nil {
		s.Pending = t.batcher.Pending()
	}
	t.mu.Unlock()

	s.Batches = t.batches.Load()
	s.Dispatched = t.dispatched.Load()
	s.Failures = t.failures.Load()
	return s
}
