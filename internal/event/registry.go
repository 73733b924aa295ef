package event

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/scrollspy/internal/event/topic"
)

// listener is one registration in the registry.
type listener struct {
	id        string
	scope     any
	handler   Handler
	boundArgs []any
}

// matches reports whether the listener was registered with exactly this
// handler and scope.
func (l *listener) matches(h Handler, scope any) bool {
	return sameRef(l.handler, h) && sameRef(l.scope, scope)
}

// Registry maps event types to their ordered listener lists.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	buckets map[topic.Topic][]*listener
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		buckets: make(map[topic.Topic][]*listener),
	}
}

// Add appends a listener to the bucket for t, creating the bucket if needed.
// It returns the listener ID.
func (r *Registry) Add(t topic.Topic, h Handler, scope any, boundArgs ...any) string {
	l := &listener{
		id:      uuid.NewString(),
		scope:   scope,
		handler: h,
	}
	if len(boundArgs) > 0 {
		l.boundArgs = append([]any(nil), boundArgs...)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets[t] = append(r.buckets[t], l)
	return l.id
}

// Remove rebuilds the bucket for t without any listener matching
// (h, scope). It returns the number of listeners removed.
func (r *Registry) Remove(t topic.Topic, h Handler, scope any) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.buckets[t]
	if !ok {
		return 0
	}

	// A fresh slice keeps snapshots taken by in-flight dispatches intact.
	kept := make([]*listener, 0, len(bucket))
	for _, l := range bucket {
		if !l.matches(h, scope) {
			kept = append(kept, l)
		}
	}
	r.buckets[t] = kept
	return len(bucket) - len(kept)
}

// Has reports whether a matching listener exists for t.
// With a nil handler and nil scope it reports whether the bucket is
// non-empty. With a nil scope only the handler has to match.
func (r *Registry) Has(t topic.Topic, h Handler, scope any) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.buckets[t]
	if h == nil && scope == nil {
		return len(bucket) > 0
	}
	for _, l := range bucket {
		if (scope == nil || sameRef(l.scope, scope)) && sameRef(l.handler, h) {
			return true
		}
	}
	return false
}

// snapshot returns a copy of the bucket for t.
func (r *Registry) snapshot(t topic.Topic) []*listener {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.buckets[t]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]*listener, len(bucket))
	copy(out, bucket)
	return out
}

// Count returns the total number of listeners.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, bucket := range r.buckets {
		n += len(bucket)
	}
	return n
}

// CountByTopic returns the number of listeners registered for t.
func (r *Registry) CountByTopic(t topic.Topic) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buckets[t])
}

// Topics returns every event type that has a bucket, sorted.
// Buckets emptied by Remove are still reported.
func (r *Registry) Topics() []topic.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.buckets) == 0 {
		return nil
	}
	topics := make([]topic.Topic, 0, len(r.buckets))
	for t := range r.buckets {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}

// Clear removes all listeners and buckets.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets = make(map[topic.Topic][]*listener)
}
