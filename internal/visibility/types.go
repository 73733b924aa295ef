package visibility

import (
	"context"
	"strconv"

	"github.com/dshills/scrollspy/internal/event/topic"
)

// Element is an observable item. ID identifies it in CHANGE_ITEM events.
type Element interface {
	ID() string
}

// Root is the container whose descendants are tracked.
type Root interface {
	QueryAll(selector string) ([]Element, error)
}

// Entry is one raw intersection record.
type Entry struct {
	Target         Element
	IsIntersecting bool
}

// TargetID returns the target's id, or "" when the entry has no target.
func (e Entry) TargetID() string {
	if e.Target == nil {
		return ""
	}
	return e.Target.ID()
}

// Callback receives intersection entries from an Observer.
type Callback func(entries []Entry)

// Observer is the intersection collaborator.
type Observer interface {
	Observe(el Element) error
	Disconnect()
}

// ObserverConfig is passed to the ObserverFactory untouched.
type ObserverConfig map[string]any

// ObserverFactory builds an Observer rooted at root that reports to cb.
// A nil factory means the host has no intersection capability.
type ObserverFactory func(root Root, cfg ObserverConfig, cb Callback) (Observer, error)

// Dispatcher publishes events. *event.Bus satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, t topic.Topic, args ...any) error
}

// Float returns the numeric value stored under key, or def.
func (c ObserverConfig) Float(key string, def float64) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Int returns the integer value stored under key, or def.
func (c ObserverConfig) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// Clone returns a shallow copy of c.
func (c ObserverConfig) Clone() ObserverConfig {
	if c == nil {
		return nil
	}
	out := make(ObserverConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
