package domain

import (
	"fmt"
	"time"
)

// ConfigError indicates invalid construction input; no client is produced.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// TransportError indicates an HTTP non-success response or a socket send
// failure. It is surfaced to the caller of the failing operation.
type TransportError struct {
	Operation string
	Status    int
	Err       error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport failure in %s: status %d", e.Operation, e.Status)
	}
	return fmt.Sprintf("transport failure in %s: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates that no WebSocket reply arrived within the timeout
// window. The request is rejected; the socket stays open.
type TimeoutError struct {
	Method  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %q timed out after %s", e.Method, e.Timeout)
}

// RemoteError carries a server-reported error payload correlated to a
// specific request or subscription.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "remote error: " + e.Message
}

// ValidationError indicates that a response failed its schema check. It is
// suppressed entirely when type validation is disabled.
type ValidationError struct {
	Schema string
	Value  any
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("response does not match schema %q: %v", e.Schema, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// PreconditionError indicates an operation that requires an open WebSocket
// session was called while disconnected.
type PreconditionError struct {
	Operation string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s requires a connected websocket session", e.Operation)
}
