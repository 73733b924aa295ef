package viewport

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/dshills/scrollspy/internal/visibility"
)

// Observer config keys.
const (
	// ThresholdKey is the fraction of an item's rows that must be visible
	// for it to count as intersecting. 0 means any overlap.
	ThresholdKey = "threshold"

	// RootMarginKey grows (or shrinks, if negative) the visible window by
	// this many rows on both edges.
	RootMarginKey = "rootMargin"
)

var (
	// ErrNotLaidOut is returned by Observe for elements missing from the layout.
	ErrNotLaidOut = errors.New("viewport: element has no layout")

	// ErrDisconnected is returned by Observe after Disconnect.
	ErrDisconnected = errors.New("viewport: observer disconnected")
)

// Observer reports items entering and leaving the viewport.
type Observer struct {
	vp        *Viewport
	layout    Layout
	cb        visibility.Callback
	threshold float64
	margin    int

	// notifyMu keeps computed transitions and their callbacks in order.
	notifyMu sync.Mutex

	mu           sync.Mutex
	targets      []visibility.Element
	state        map[string]bool
	disconnected bool
}

// NewObserver creates an observer of vp. Item positions come from layout.
func NewObserver(vp *Viewport, layout Layout, cfg visibility.ObserverConfig, cb visibility.Callback) *Observer {
	threshold := cfg.Float(ThresholdKey, 0)
	threshold = math.Max(0, math.Min(1, threshold))
	if cb == nil {
		cb = func([]visibility.Entry) {}
	}
	o := &Observer{
		vp:        vp,
		layout:    layout,
		cb:        cb,
		threshold: threshold,
		margin:    cfg.Int(RootMarginKey, 0),
		state:     make(map[string]bool),
	}
	vp.attach(o)
	return o
}

// Factory returns a visibility.ObserverFactory producing observers of vp.
// The root passed by the tracker is not used: the viewport is the root.
func Factory(vp *Viewport, layout Layout) visibility.ObserverFactory {
	return func(_ visibility.Root, cfg visibility.ObserverConfig, cb visibility.Callback) (visibility.Observer, error) {
		if vp == nil || layout == nil {
			return nil, fmt.Errorf("viewport: factory needs a viewport and a layout")
		}
		return NewObserver(vp, layout, cfg, cb), nil
	}
}

// Observe starts watching el and immediately reports its current state.
func (o *Observer) Observe(el visibility.Element) error {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	id := el.ID()
	span, ok := o.layout.Bounds(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotLaidOut, id)
	}

	o.mu.Lock()
	if o.disconnected {
		o.mu.Unlock()
		return ErrDisconnected
	}
	if _, seen := o.state[id]; !seen {
		o.targets = append(o.targets, el)
	}
	visible := o.intersects(span)
	o.state[id] = visible
	o.mu.Unlock()

	o.cb([]visibility.Entry{{Target: el, IsIntersecting: visible}})
	return nil
}

// Unobserve stops watching el without a final report.
func (o *Observer) Unobserve(el visibility.Element) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := el.ID()
	delete(o.state, id)
	kept := o.targets[:0]
	for _, t := range o.targets {
		if t.ID() != id {
			kept = append(kept, t)
		}
	}
	o.targets = kept
}

// Disconnect stops all observation. It is idempotent.
func (o *Observer) Disconnect() {
	o.mu.Lock()
	if o.disconnected {
		o.mu.Unlock()
		return
	}
	o.disconnected = true
	o.targets = nil
	o.state = make(map[string]bool)
	o.mu.Unlock()

	o.vp.detach(o)
}

// update reports targets whose state changed since the last report.
func (o *Observer) update() {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	o.mu.Lock()
	if o.disconnected {
		o.mu.Unlock()
		return
	}
	var changed []visibility.Entry
	for _, el := range o.targets {
		id := el.ID()
		span, ok := o.layout.Bounds(id)
		if !ok {
			continue
		}
		visible := o.intersects(span)
		if o.state[id] != visible {
			o.state[id] = visible
			changed = append(changed, visibility.Entry{Target: el, IsIntersecting: visible})
		}
	}
	o.mu.Unlock()

	if len(changed) > 0 {
		o.cb(changed)
	}
}

// intersects applies margin and threshold to span.
func (o *Observer) intersects(span Span) bool {
	start, end := o.vp.VisibleRange()
	start -= o.margin
	end += o.margin
	if end < start {
		return false
	}

	overlap := min(end, span.Bottom()) - max(start, span.Top) + 1
	if overlap <= 0 {
		return false
	}
	if o.threshold == 0 {
		return true
	}
	return float64(overlap)/float64(span.Height) >= o.threshold
}

// Visible returns the ids currently reported as intersecting.
func (o *Observer) Visible() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var ids []string
	for _, el := range o.targets {
		if o.state[el.ID()] {
			ids = append(ids, el.ID())
		}
	}
	return ids
}
