package bridge

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the bridge.
var (
	// ErrClosed is returned when calling through a closed agent.
	ErrClosed = errors.New("bridge agent is closed")

	// ErrNotReady is returned by queued-policy calls whose wait for the
	// remote context was cancelled.
	ErrNotReady = errors.New("remote context is not ready")
)

// ReadinessTimeoutError is returned when the readiness handshake exceeds its
// bounded wait.
type ReadinessTimeoutError struct {
	Target  string
	Waited  time.Duration
	Retries int
}

// Error implements the error interface.
func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("context %q not ready after %s (%d probes)", e.Target, e.Waited, e.Retries)
}

// CallTimeoutError is returned when a pending call expires before its
// callback envelope arrives.
type CallTimeoutError struct {
	Action        string
	CorrelationID string
}

// Error implements the error interface.
func (e *CallTimeoutError) Error() string {
	return fmt.Sprintf("call %q (%s) timed out waiting for callback", e.Action, e.CorrelationID)
}
