package event

import (
	"errors"
	"fmt"
)

// ErrHandlerPanic is matched by errors.Is for every *PanicError.
var ErrHandlerPanic = errors.New("handler panicked")

// ListenerError wraps an error returned by a listener during dispatch.
type ListenerError struct {
	// Topic is the dispatched event type.
	Topic string

	// ListenerID is the registry ID of the failing listener.
	ListenerID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %s on topic %s: %v", e.ListenerID, e.Topic, e.Err)
}

// Unwrap returns the underlying error.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a recovered listener panic.
type PanicError struct {
	// Topic is the dispatched event type.
	Topic string

	// ListenerID is the registry ID of the panicking listener.
	ListenerID string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("listener %s panicked on topic %s: %v", e.ListenerID, e.Topic, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
