package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/scrollspy/internal/event/topic"
)

// Bus is the event bus. The zero value is not usable; use NewBus.
type Bus struct {
	registry *Registry
	config   busConfig

	dispatched atomic.Uint64
	delivered  atomic.Uint64
	failed     atomic.Uint64
	panicked   atomic.Uint64
}

// NewBus creates an event bus with its own registry.
func NewBus(opts ...BusOption) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Bus{
		registry: NewRegistry(),
		config:   config,
	}
}

// AddEventListener registers h for t with the given scope and bound
// arguments. Duplicate registrations are allowed.
func (b *Bus) AddEventListener(t topic.Topic, h Handler, scope any, boundArgs ...any) {
	id := b.registry.Add(t, h, scope, boundArgs...)
	b.config.logger.Debug("listener added",
		zap.Stringer("topic", t),
		zap.String("listener", id),
		zap.String("owner", ownerName(scope)),
	)
}

// RemoveEventListener removes every listener for t registered with exactly
// (h, scope). Unknown types and missing listeners are ignored.
func (b *Bus) RemoveEventListener(t topic.Topic, h Handler, scope any) {
	if n := b.registry.Remove(t, h, scope); n > 0 {
		b.config.logger.Debug("listener removed",
			zap.Stringer("topic", t),
			zap.Int("count", n),
			zap.String("owner", ownerName(scope)),
		)
	}
}

// HasEventListener reports whether a matching listener exists for t.
// Pass nil for both h and scope to ask whether t has any listener at all,
// or nil for scope alone to match on the handler only.
func (b *Bus) HasEventListener(t topic.Topic, h Handler, scope any) bool {
	return b.registry.Has(t, h, scope)
}

// Dispatch delivers an event of type t to every listener registered at the
// time of the call, in registration order, on the calling goroutine.
//
// Under FailFast the first listener error stops the pass and is returned as
// a *ListenerError; panics are not recovered. Under Isolate every listener
// runs and the failures are returned combined.
func (b *Bus) Dispatch(ctx context.Context, t topic.Topic, args ...any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	b.dispatched.Add(1)

	listeners := b.registry.snapshot(t)
	if len(listeners) == 0 {
		return nil
	}

	evt := newEvent(t, args, sourceFrom(ctx), b.config.clock.Now())

	if b.config.policy == Isolate {
		return b.dispatchIsolated(ctx, evt, args, listeners)
	}

	for _, l := range listeners {
		if l.handler == nil {
			continue
		}
		if err := l.handler.Handle(withScope(ctx, l.scope), evt, callArgs(args, l.boundArgs)); err != nil {
			b.failed.Add(1)
			return &ListenerError{Topic: string(t), ListenerID: l.id, Err: err}
		}
		b.delivered.Add(1)
	}
	return nil
}

// dispatchIsolated runs every listener, recovering panics.
func (b *Bus) dispatchIsolated(ctx context.Context, evt Event, args []any, listeners []*listener) error {
	var errs error
	for _, l := range listeners {
		if l.handler == nil {
			continue
		}
		if err := b.invokeRecover(ctx, evt, args, l); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		b.delivered.Add(1)
	}
	return errs
}

// invokeRecover calls one listener and converts a panic into a *PanicError.
func (b *Bus) invokeRecover(ctx context.Context, evt Event, args []any, l *listener) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.panicked.Add(1)
			perr := &PanicError{
				Topic:      string(evt.Type),
				ListenerID: l.id,
				Value:      r,
				Stack:      string(debug.Stack()),
			}
			b.config.logger.Error("listener panicked",
				zap.Stringer("topic", evt.Type),
				zap.String("listener", l.id),
				zap.Any("value", r),
			)
			err = perr
		}
	}()

	if herr := l.handler.Handle(withScope(ctx, l.scope), evt, callArgs(args, l.boundArgs)); herr != nil {
		b.failed.Add(1)
		return &ListenerError{Topic: string(evt.Type), ListenerID: l.id, Err: herr}
	}
	return nil
}

// callArgs builds the per-listener argument list.
func callArgs(args, bound []any) []any {
	if len(args)+len(bound) == 0 {
		return nil
	}
	out := make([]any, 0, len(args)+len(bound))
	out = append(out, args...)
	return append(out, bound...)
}

// Events returns a human-readable report with one line per registered
// listener: "<owner> listen for '<type>'". Event types are reported in
// sorted order, listeners in registration order.
func (b *Bus) Events() string {
	return b.EventsUnder("")
}

// EventsUnder is Events restricted to topics at or below prefix.
func (b *Bus) EventsUnder(prefix topic.Topic) string {
	var sb strings.Builder
	for _, t := range b.registry.Topics() {
		if !t.HasPrefix(prefix) {
			continue
		}
		for _, l := range b.registry.snapshot(t) {
			fmt.Fprintf(&sb, "%s listen for '%s'\n", ownerName(l.scope), t)
		}
	}
	return sb.String()
}

// Topics returns every event type that has a bucket.
func (b *Bus) Topics() []topic.Topic {
	return b.registry.Topics()
}

// Clear removes every listener.
func (b *Bus) Clear() {
	b.registry.Clear()
}

// Policy returns the configured failure policy.
func (b *Bus) Policy() FailurePolicy {
	return b.config.policy
}

// Stats returns bus statistics.
func (b *Bus) Stats() Stats {
	return Stats{
		Dispatched: b.dispatched.Load(),
		Delivered:  b.delivered.Load(),
		Failed:     b.failed.Load(),
		Panicked:   b.panicked.Load(),
		Listeners:  b.registry.Count(),
		Topics:     len(b.registry.Topics()),
	}
}

// ownerName derives the owner label used in reports and logs.
func ownerName(scope any) string {
	if n, ok := scope.(Named); ok && n != nil {
		if name := n.Name(); name != "" {
			return name
		}
	}
	return "anonymous"
}
