// Package event provides the in-process event bus used by scrollspy.
//
// The bus is a listener registry keyed by event type (a topic.Topic) with
// synchronous fan-out dispatch. Unrelated components discover each other by
// event name only: the visibility tracker dispatches CHANGE_ITEM, the
// navigation list listens for it, and neither holds a reference to the other.
//
// # Listeners
//
// A listener is a (scope, handler, bound args) triple. Identity for removal
// and lookup is the (scope, handler) pair compared with ==, so handlers that
// must be removed later should be pointer values:
//
//	h := event.NewHandler(func(ctx context.Context, evt event.Event, args []any) error {
//	    owner := event.ScopeFrom(ctx).(*Navigation)
//	    return owner.apply(evt)
//	})
//	if !bus.HasEventListener(events.ChangeItem, h, nav) {
//	    bus.AddEventListener(events.ChangeItem, h, nav)
//	}
//
// The bus does not enforce uniqueness. Registering the same pair twice
// delivers twice; the has-then-add guard above is the caller's convention.
//
// # Dispatch
//
// Dispatch builds an Event whose Args field depends on the number of extra
// arguments: none gives nil, one gives that value, more gives []any of all
// of them. Every handler also receives the raw argument list followed by its
// bound arguments.
//
// The listener list is copied before fan-out. Listeners removed during a
// dispatch still receive the event if they were captured at its start;
// listeners added during a dispatch wait for the next one.
//
// # Failures
//
// By default the first handler error aborts the pass and is returned to the
// caller wrapped in a *ListenerError; a panic propagates unrecovered. The
// WithIsolation option recovers panics, keeps delivering, and returns every
// failure combined.
//
// # Thread Safety
//
// The registry is guarded by a mutex that is never held while handlers run,
// so handlers may add and remove listeners freely. Handlers execute on the
// dispatching goroutine.
package event
