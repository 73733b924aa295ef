// Package watcher provides live reload of the configuration file.
//
// The watcher monitors the config file's directory with fsnotify, so
// editors that replace the file by rename are seen too. Bursts of file
// events are coalesced with a debounce.Batcher and produce one reload.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/scrollspy/internal/config"
	"github.com/dshills/scrollspy/internal/debounce"
	"github.com/dshills/scrollspy/internal/event"
	"github.com/dshills/scrollspy/internal/event/events"
	"github.com/dshills/scrollspy/internal/visibility"
)

// DefaultDelay is the quiet period before a reload.
const DefaultDelay = 100 * time.Millisecond

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("watcher: closed")

// ReloadFunc receives the result of every reload. cfg is nil when err is set.
type ReloadFunc func(cfg *config.Config, err error)

// LoadFunc loads the config file at path.
type LoadFunc func(path string) (*config.Config, error)

// Watcher reloads a config file when it changes.
type Watcher struct {
	mu sync.Mutex

	path     string
	delay    time.Duration
	clock    clock.Clock
	logger   *zap.Logger
	bus      visibility.Dispatcher
	load     LoadFunc
	onReload ReloadFunc

	fsw     *fsnotify.Watcher
	batcher *debounce.Batcher[fsnotify.Event]
	closeCh chan struct{}
	wg      sync.WaitGroup
	started bool
	closed  bool

	reloads  atomic.Uint64
	failures atomic.Uint64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the quiet period before a reload.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithClock sets the clock used by the reload timer.
func WithClock(c clock.Clock) Option {
	return func(w *Watcher) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDispatcher publishes ConfigReloaded and ConfigReloadFailed on d.
func WithDispatcher(d visibility.Dispatcher) Option {
	return func(w *Watcher) {
		w.bus = d
	}
}

// WithLoader replaces config.Load.
func WithLoader(fn LoadFunc) Option {
	return func(w *Watcher) {
		if fn != nil {
			w.load = fn
		}
	}
}

// OnReload sets the reload callback.
func OnReload(fn ReloadFunc) Option {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// New creates a watcher for path. Nothing is watched until Start.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:    abs,
		delay:   DefaultDelay,
		clock:   clock.New(),
		logger:  zap.NewNop(),
		load:    config.Load,
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.batcher = debounce.New(w.reload, w.delay,
		debounce.WithClock(w.clock),
		debounce.WithLogger(w.logger))
	return w, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Start begins watching. Calling Start twice is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.started {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	w.fsw = fsw
	w.started = true
	w.wg.Add(1)
	go w.processLoop(fsw)

	w.logger.Debug("watching config", zap.String("path", w.path))
	return nil
}

// processLoop handles incoming fsnotify events.
func (w *Watcher) processLoop(fsw *fsnotify.Watcher) {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// handleEvent queues events that touch the config file.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
		return
	}
	if err := w.batcher.Invoke(ev); err != nil {
		w.logger.Debug("config event after close dropped", zap.Stringer("op", ev.Op))
	}
}

// reload runs once per settled burst.
func (w *Watcher) reload(batch []fsnotify.Event) {
	cfg, err := w.load(w.path)

	payload := events.ConfigReload{Path: w.path, Changes: len(batch), Err: err}
	topic := events.ConfigReloaded
	if err != nil {
		w.failures.Add(1)
		topic = events.ConfigReloadFailed
		w.logger.Warn("config reload failed", zap.String("path", w.path), zap.Error(err))
	} else {
		w.reloads.Add(1)
		w.logger.Info("config reloaded", zap.String("path", w.path), zap.Int("changes", len(batch)))
	}

	if w.bus != nil {
		ctx := event.WithSource(context.Background(), "config")
		if derr := w.bus.Dispatch(ctx, topic, payload); derr != nil {
			w.logger.Warn("config reload dispatch failed", zap.Error(derr))
		}
	}
	if w.onReload != nil {
		w.onReload(cfg, err)
	}
}

// Reloads returns the number of successful reloads.
func (w *Watcher) Reloads() uint64 {
	return w.reloads.Load()
}

// Failures returns the number of failed reloads.
func (w *Watcher) Failures() uint64 {
	return w.failures.Load()
}

// Close stops watching and drops any pending reload.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	fsw := w.fsw
	w.mu.Unlock()

	w.batcher.Dispose()
	w.wg.Wait()

	var errs error
	if fsw != nil {
		errs = multierr.Append(errs, fsw.Close())
	}
	return errs
}
