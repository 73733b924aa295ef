package visibility

import "errors"

var (
	// ErrCapabilityUnavailable is returned by Activate when the host provides
	// no ObserverFactory.
	ErrCapabilityUnavailable = errors.New("visibility: intersection observer unavailable")

	// ErrAlreadyActive is returned by a second Activate.
	ErrAlreadyActive = errors.New("visibility: tracker already active")

	// ErrClosed is returned by Activate after Close.
	ErrClosed = errors.New("visibility: tracker closed")

	// ErrInvalidConfig wraps configuration problems found by Validate.
	ErrInvalidConfig = errors.New("visibility: invalid config")
)
