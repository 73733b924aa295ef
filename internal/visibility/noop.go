package visibility

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Activator is the lifecycle shared by Tracker and Noop.
type Activator interface {
	Activate(ctx context.Context) error
	Close() error
}

// Noop stands in for a Tracker on hosts without an intersection capability.
type Noop struct{}

// Activate does nothing.
func (Noop) Activate(context.Context) error { return nil }

// Close does nothing.
func (Noop) Close() error { return nil }

// ActivateOrNoop activates t. If the host lacks the intersection capability
// the failure is logged and Noop is returned in its place; any other error
// is returned as is.
func ActivateOrNoop(ctx context.Context, t *Tracker, logger *zap.Logger) (Activator, error) {
	err := t.Activate(ctx)
	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, ErrCapabilityUnavailable):
		if logger != nil {
			logger.Warn("visibility tracking disabled", zap.Error(err))
		}
		return Noop{}, nil
	default:
		return nil, err
	}
}
