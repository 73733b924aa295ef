package event

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// FailurePolicy selects what Dispatch does when a listener fails.
type FailurePolicy int

const (
	// FailFast stops the dispatch pass at the first listener error and
	// lets panics propagate to the caller.
	FailFast FailurePolicy = iota

	// Isolate recovers panics, delivers to every snapshotted listener and
	// returns all failures combined.
	Isolate
)

// String returns a human-readable policy name.
func (p FailurePolicy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case Isolate:
		return "isolate"
	default:
		return "unknown"
	}
}

// busConfig contains bus configuration.
type busConfig struct {
	policy FailurePolicy
	logger *zap.Logger
	clock  clock.Clock
}

func defaultBusConfig() busConfig {
	return busConfig{
		policy: FailFast,
		logger: zap.NewNop(),
		clock:  clock.New(),
	}
}

// BusOption configures a Bus.
type BusOption func(*busConfig)

// WithFailurePolicy sets the listener failure policy.
func WithFailurePolicy(p FailurePolicy) BusOption {
	return func(c *busConfig) {
		c.policy = p
	}
}

// WithIsolation is shorthand for WithFailurePolicy(Isolate).
func WithIsolation() BusOption {
	return WithFailurePolicy(Isolate)
}

// WithLogger sets the logger used for debug tracing and recovered panics.
func WithLogger(l *zap.Logger) BusOption {
	return func(c *busConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the clock used to timestamp events.
func WithClock(clk clock.Clock) BusOption {
	return func(c *busConfig) {
		if clk != nil {
			c.clock = clk
		}
	}
}
