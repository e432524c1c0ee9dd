package router

import "errors"

// Sentinel errors for the router.
var (
	// ErrNilHandler is returned when a nil handler is registered.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrEmptyAction is returned when registering an empty action name.
	ErrEmptyAction = errors.New("action name cannot be empty")

	// ErrActionRegistered is returned when an action already has a handler.
	ErrActionRegistered = errors.New("action already registered")

	// ErrNoHandler is returned by Route when the action is unknown and the
	// router is configured to fail on unknown actions.
	ErrNoHandler = errors.New("no handler for action")
)
