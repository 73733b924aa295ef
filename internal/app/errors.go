package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrNoDocument indicates neither a document nor a document path was given.
	ErrNoDocument = errors.New("no document")

	// ErrRootNotFound indicates the configured root selector matched nothing.
	ErrRootNotFound = errors.New("tracking root not found")
)

// ComponentError represents an error from a specific component.
type ComponentError struct {
	Component string // Component name (e.g., "tracker", "watcher", "metrics")
	Action    string // Action being performed
	Err       error  // Underlying error
}

func (e *ComponentError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s: %s: %v", e.Component, e.Action, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Component, e.Err)
}

func (e *ComponentError) Unwrap() error {
	return e.Err
}

func componentError(component, action string, err error) error {
	if err == nil {
		return nil
	}
	return &ComponentError{Component: component, Action: action, Err: err}
}
