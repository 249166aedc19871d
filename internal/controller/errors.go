package controller

import "errors"

var (
	// ErrNotConnected is reported for commands addressed to a peripheral
	// without a live connection. The command is dropped, not retried.
	ErrNotConnected = errors.New("device not connected")

	// ErrTimeout is reported when a transport operation exceeds its bound.
	// The affected peripheral is marked disconnected as a reconnection
	// trigger.
	ErrTimeout = errors.New("operation timed out")

	// ErrStopped is reported for work submitted after shutdown began.
	ErrStopped = errors.New("controller stopped")
)
