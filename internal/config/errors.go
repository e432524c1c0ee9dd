package config

import "fmt"

// ParseError wraps a TOML syntax failure with its source path.
type ParseError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse config %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.Err }

// ValueError reports an out-of-range configuration value.
type ValueError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValueError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}
