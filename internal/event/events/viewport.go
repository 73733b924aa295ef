package events

import "github.com/dshills/scrollspy/internal/event/topic"

// ViewportScrolled is dispatched when the reference viewport moves.
const ViewportScrolled topic.Topic = "viewport.scrolled"

// ViewportScroll is the ViewportScrolled payload.
type ViewportScroll struct {
	// OldTop is the first visible row before the scroll.
	OldTop int

	// NewTop is the first visible row after the scroll.
	NewTop int

	// Height is the number of visible rows.
	Height int
}
