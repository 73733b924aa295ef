package event

import (
	"context"
	"reflect"
)

// Handler is the interface for event listeners.
//
// args holds the dispatch arguments followed by the listener's bound
// arguments. The listener's scope is available through ScopeFrom(ctx).
type Handler interface {
	Handle(ctx context.Context, evt Event, args []any) error
}

// HandlerFunc is a function adapter for Handler.
//
// Function values are not comparable, so a HandlerFunc can be registered but
// never matched by RemoveEventListener or HasEventListener. Use NewHandler
// when the listener must be found again.
type HandlerFunc func(ctx context.Context, evt Event, args []any) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, evt Event, args []any) error {
	return f(ctx, evt, args)
}

// FuncHandler is a Handler with pointer identity.
type FuncHandler struct {
	fn HandlerFunc
}

// NewHandler wraps fn in a handler that compares equal only to itself.
func NewHandler(fn HandlerFunc) *FuncHandler {
	return &FuncHandler{fn: fn}
}

// Handle implements the Handler interface.
func (h *FuncHandler) Handle(ctx context.Context, evt Event, args []any) error {
	if h == nil || h.fn == nil {
		return nil
	}
	return h.fn(ctx, evt, args)
}

// On returns a handler that receives the event arguments as T.
// Events whose Args are not a T are skipped silently.
func On[T any](fn func(ctx context.Context, payload T) error) *FuncHandler {
	return NewHandler(func(ctx context.Context, evt Event, _ []any) error {
		payload, ok := evt.Args.(T)
		if !ok {
			return nil
		}
		return fn(ctx, payload)
	})
}

// Named is implemented by listener scopes that can describe themselves.
// The name is used by Bus.Events.
type Named interface {
	Name() string
}

// Stats contains event bus statistics.
type Stats struct {
	// Dispatched is the total number of Dispatch calls.
	Dispatched uint64

	// Delivered is the number of handler invocations that returned nil.
	Delivered uint64

	// Failed is the number of handler invocations that returned an error.
	Failed uint64

	// Panicked is the number of handler panics recovered in isolation mode.
	Panicked uint64

	// Listeners is the current number of registered listeners.
	Listeners int

	// Topics is the current number of event types with a bucket.
	Topics int
}

// sameRef reports whether a and b are the same reference.
// Values of non-comparable dynamic types never match.
func sameRef(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	// Comparable struct types can still hold non-comparable interface fields.
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
