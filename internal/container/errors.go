package container

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the container.
var (
	// ErrNilFactory is returned when a registration has no factory.
	ErrNilFactory = errors.New("factory cannot be nil")

	// ErrEmptyName is returned when a registration name is empty.
	ErrEmptyName = errors.New("service name cannot be empty")
)

// NotFoundError is returned when resolving an unregistered name.
type NotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("service not found: %s", e.Name)
}

// AlreadyRegisteredError is returned when registering a duplicate name
// without override permission.
type AlreadyRegisteredError struct {
	Name string
}

// Error implements the error interface.
func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("service already registered: %s", e.Name)
}

// CircularDependencyError is returned when a factory graph resolves itself.
// Chain lists the names in resolution order, ending with the repeated name.
type CircularDependencyError struct {
	Chain []string
}

// Error implements the error interface.
func (e *CircularDependencyError) Error() string {
	return "circular dependency: " + strings.Join(e.Chain, " -> ")
}
