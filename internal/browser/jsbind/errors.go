// internal/browser/jsbind/errors.go
package jsbind

import "fmt"

// Typed errors let callers classify script failures with errors.As instead of
// matching on message text.

// InvalidNodeError is thrown into the script when a DOM method receives a
// value that is not a node created by this bridge.
type InvalidNodeError struct {
	Method string
	Got    string
}

// Error implements the error interface by formatting the message on the fly.
func (e *InvalidNodeError) Error() string {
	return fmt.Sprintf("%s: argument is not a node (got %s)", e.Method, e.Got)
}

// NewInvalidNodeError creates a new InvalidNodeError.
func NewInvalidNodeError(method, got string) *InvalidNodeError {
	return &InvalidNodeError{Method: method, Got: got}
}

// CallbackError records an exception thrown by a timer or frame callback.
// Such exceptions do not stop the clock; they are collected by the bridge.
type CallbackError struct {
	Kind  string // "timeout", "interval" or "frame"
	Token uint64
	Err   error
}

// Error implements the error interface.
func (e *CallbackError) Error() string {
	return fmt.Sprintf("%s callback %d failed: %v", e.Kind, e.Token, e.Err)
}

// Unwrap provides the underlying error for use with errors.Is/As.
func (e *CallbackError) Unwrap() error {
	return e.Err
}
