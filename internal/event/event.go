package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/scrollspy/internal/event/topic"
)

// Event is the value delivered to every listener of a dispatch.
// Events are immutable once created.
type Event struct {
	// Type is the dispatched event type.
	Type topic.Topic

	// Args is nil for a dispatch with no arguments, the argument itself for
	// a single argument, and []any of all arguments otherwise.
	Args any

	// Metadata contains standard event information.
	Metadata Metadata
}

// Metadata contains standard information attached to every event.
type Metadata struct {
	// ID is a unique identifier for this event instance.
	ID string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Source identifies the component that dispatched the event, if known.
	Source string
}

// newEvent creates the event for one dispatch call.
func newEvent(eventType topic.Topic, args []any, source string, now time.Time) Event {
	return Event{
		Type: eventType,
		Args: packArgs(args),
		Metadata: Metadata{
			ID:        uuid.NewString(),
			Timestamp: now,
			Source:    source,
		},
	}
}

// packArgs applies the argument unwrapping rule.
func packArgs(args []any) any {
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0]
	default:
		out := make([]any, len(args))
		copy(out, args)
		return out
	}
}

// ArgsAs returns the event arguments as T.
// The second result is false if Args is not a T.
func ArgsAs[T any](evt Event) (T, bool) {
	v, ok := evt.Args.(T)
	return v, ok
}

// ArgList returns the event arguments as a slice regardless of how many
// were dispatched.
func (e Event) ArgList() []any {
	switch v := e.Args.(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}
