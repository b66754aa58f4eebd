// Package app is the worker side of windbus: it drives the window through
// an event loop proxy, renders frames and applies the input policy.
package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrAlreadyRunning indicates the application is already running.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrLoopStopped indicates the event loop ended while the application
	// was still running.
	ErrLoopStopped = errors.New("event loop stopped")
)

// OperationError represents an error that occurred during a specific operation.
type OperationError struct {
	Op  string // Operation name (e.g., "create window", "present")
	Err error  // Underlying error
}

func (e *OperationError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
