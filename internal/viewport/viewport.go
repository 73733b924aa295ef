// Package viewport provides a row-based scrolling viewport and an
// intersection observer over it.
//
// Content is a vertical stack of rows. Items occupy row ranges given by a
// Layout, and an Observer reports when those ranges enter or leave the
// visible window. The observer satisfies visibility.ObserverFactory, which
// makes the viewport a reference intersection collaborator for the
// visibility tracker.
package viewport

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/scrollspy/internal/event"
	"github.com/dshills/scrollspy/internal/event/events"
	"github.com/dshills/scrollspy/internal/visibility"
)

// DefaultPageOverlap is the number of rows kept on screen by PageUp and PageDown.
const DefaultPageOverlap = 2

// Viewport is the visible window over a stack of rows.
type Viewport struct {
	mu sync.RWMutex

	// First visible row
	top int

	// Size in rows
	height int

	// Total content rows (0 = unbounded)
	maxRow int

	observers []*Observer

	bus    visibility.Dispatcher
	logger *zap.Logger
}

// Option configures a Viewport.
type Option func(*Viewport)

// WithDispatcher publishes events.ViewportScrolled on d after every move.
func WithDispatcher(d visibility.Dispatcher) Option {
	return func(v *Viewport) {
		v.bus = d
	}
}

// WithLogger sets the viewport logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *Viewport) {
		if l != nil {
			v.logger = l
		}
	}
}

// New creates a viewport of height rows over maxRow rows of content.
// Height is clamped to a minimum of 1.
func New(height, maxRow int, opts ...Option) *Viewport {
	if height < 1 {
		height = 1
	}
	if maxRow < 0 {
		maxRow = 0
	}
	v := &Viewport{
		height: height,
		maxRow: maxRow,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Height returns the viewport height.
func (v *Viewport) Height() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.height
}

// Top returns the first visible row.
func (v *Viewport) Top() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.top
}

// Bottom returns the last visible row.
func (v *Viewport) Bottom() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.bottom()
}

// bottom returns the last visible row (internal, no lock).
func (v *Viewport) bottom() int {
	b := v.top + v.height - 1
	if v.maxRow > 0 && b > v.maxRow-1 {
		b = v.maxRow - 1
	}
	return b
}

// MaxRow returns the number of content rows.
func (v *Viewport) MaxRow() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.maxRow
}

// VisibleRange returns the first and last visible rows.
func (v *Viewport) VisibleRange() (start, end int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.top, v.bottom()
}

// IsRowVisible reports whether row is on screen.
func (v *Viewport) IsRowVisible(row int) bool {
	start, end := v.VisibleRange()
	return row >= start && row <= end
}

// ScrollPercent returns how far the viewport has scrolled, from 0 to 100.
func (v *Viewport) ScrollPercent() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	last := v.lastTop()
	if last <= 0 {
		return 0
	}
	return v.top * 100 / last
}

// lastTop is the largest top that still fills the window.
func (v *Viewport) lastTop() int {
	if v.maxRow == 0 {
		return v.top
	}
	last := v.maxRow - v.height
	if last < 0 {
		last = 0
	}
	return last
}

// clamp bounds a candidate top row (internal, no lock).
func (v *Viewport) clamp(row int) int {
	if row < 0 {
		row = 0
	}
	if v.maxRow > 0 && row > v.maxRow-1 {
		row = v.maxRow - 1
	}
	return row
}

// Resize changes the viewport height.
func (v *Viewport) Resize(height int) {
	if height < 1 {
		height = 1
	}
	v.mu.Lock()
	v.height = height
	top := v.top
	v.mu.Unlock()

	v.moved(top, top)
}

// SetMaxRow sets the number of content rows and clamps the position.
func (v *Viewport) SetMaxRow(maxRow int) {
	if maxRow < 0 {
		maxRow = 0
	}
	v.mu.Lock()
	v.maxRow = maxRow
	old := v.top
	v.top = v.clamp(v.top)
	top := v.top
	v.mu.Unlock()

	v.moved(old, top)
}

// ScrollTo shows row at the top.
func (v *Viewport) ScrollTo(row int) {
	v.mu.Lock()
	old := v.top
	v.top = v.clamp(row)
	top := v.top
	v.mu.Unlock()

	v.moved(old, top)
}

// ScrollBy scrolls by delta rows.
func (v *Viewport) ScrollBy(delta int) {
	v.mu.Lock()
	old := v.top
	v.top = v.clamp(v.top + delta)
	top := v.top
	v.mu.Unlock()

	v.moved(old, top)
}

// PageUp scrolls up by one page (height minus overlap).
func (v *Viewport) PageUp() {
	v.ScrollBy(-v.pageSize())
}

// PageDown scrolls down by one page (height minus overlap).
func (v *Viewport) PageDown() {
	v.ScrollBy(v.pageSize())
}

func (v *Viewport) pageSize() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	size := v.height - DefaultPageOverlap
	if size < 1 {
		size = 1
	}
	return size
}

// HalfPageUp scrolls up by half a page.
func (v *Viewport) HalfPageUp() {
	v.ScrollBy(-v.halfPage())
}

// HalfPageDown scrolls down by half a page.
func (v *Viewport) HalfPageDown() {
	v.ScrollBy(v.halfPage())
}

func (v *Viewport) halfPage() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	half := v.height / 2
	if half < 1 {
		half = 1
	}
	return half
}

// ScrollToTop scrolls to the first row.
func (v *Viewport) ScrollToTop() {
	v.ScrollTo(0)
}

// ScrollToBottom scrolls so the last row is at the bottom of the window.
func (v *Viewport) ScrollToBottom() {
	v.mu.RLock()
	last := v.lastTop()
	v.mu.RUnlock()
	v.ScrollTo(last)
}

// moved notifies observers and publishes the scroll. It runs without the lock
// so observer callbacks may read the viewport.
func (v *Viewport) moved(old, top int) {
	v.mu.RLock()
	observers := append([]*Observer(nil), v.observers...)
	height := v.height
	bus := v.bus
	v.mu.RUnlock()

	for _, o := range observers {
		o.update()
	}

	if old == top || bus == nil {
		return
	}
	ctx := event.WithSource(context.Background(), "viewport")
	scroll := events.ViewportScroll{OldTop: old, NewTop: top, Height: height}
	if err := bus.Dispatch(ctx, events.ViewportScrolled, scroll); err != nil {
		v.logger.Warn("viewport scroll dispatch failed", zap.Error(err))
	}
}

func (v *Viewport) attach(o *Observer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, existing := range v.observers {
		if existing == o {
			return
		}
	}
	v.observers = append(v.observers, o)
}

func (v *Viewport) detach(o *Observer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	kept := v.observers[:0:0]
	for _, existing := range v.observers {
		if existing != o {
			kept = append(kept, existing)
		}
	}
	v.observers = kept
}

// Observers returns the number of attached observers.
func (v *Viewport) Observers() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.observers)
}
