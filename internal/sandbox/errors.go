package sandbox

import (
	"errors"
	"fmt"
)

// Sentinel errors for the plugin host.
var (
	// ErrHostClosed is returned by operations on a closed host.
	ErrHostClosed = errors.New("plugin host is closed")

	// ErrEmptyPluginName is returned when a load names no plugin.
	ErrEmptyPluginName = errors.New("plugin name is empty")

	// ErrBuiltinRegistered is returned when a compiled plugin name collides.
	ErrBuiltinRegistered = errors.New("built-in plugin already registered")
)

// PluginLoadError wraps a failure to fetch or instantiate one plugin. Load
// failures are isolated per plugin and never abort a batch.
type PluginLoadError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *PluginLoadError) Error() string {
	return fmt.Sprintf("load plugin %q: %v", e.Name, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PluginLoadError) Unwrap() error { return e.Err }

// SourceError is returned when a plugin identifier cannot be resolved to an
// allowed source location.
type SourceError struct {
	Name   string
	Reason string
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("plugin source %q: %s", e.Name, e.Reason)
}
