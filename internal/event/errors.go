package event

import "errors"

// Sentinel errors for the event bus.
var (
	// ErrNilHandler is returned when a nil handler is subscribed.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrEmptyEvent is returned when an event name is empty.
	ErrEmptyEvent = errors.New("event name cannot be empty")

	// ErrTooManySubscribers is returned when the per-event subscriber guard
	// is exceeded. The guard is a misuse detector, not a resource limit.
	ErrTooManySubscribers = errors.New("too many subscribers for event")
)
