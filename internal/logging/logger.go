// Package logging provides a minimal logging interface so components can
// depend on a small contract while callers plug in any structured logger.
// A slog adapter and a no-op logger are included.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the minimal logging contract used throughout lexide.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement Logger.
type SlogAdapter struct {
	*slog.Logger
}

// NewSlog creates a Logger backed by slog writing text to w at the given level.
func NewSlog(w io.Writer, level slog.Level) Logger {
	if w == nil {
		w = os.Stderr
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &SlogAdapter{Logger: slog.New(h)}
}

// NewJSON creates a Logger backed by slog writing JSON to w at the given level.
func NewJSON(w io.Writer, level slog.Level) Logger {
	if w == nil {
		w = os.Stderr
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &SlogAdapter{Logger: slog.New(h)}
}

// NoOp is a Logger that discards everything. Useful for tests and as the
// default when no logger is configured.
type NoOp struct{}

// Debug implements Logger.
func (NoOp) Debug(string, ...any) {}

// Info implements Logger.
func (NoOp) Info(string, ...any) {}

// Warn implements Logger.
func (NoOp) Warn(string, ...any) {}

// Error implements Logger.
func (NoOp) Error(string, ...any) {}
