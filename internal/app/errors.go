package app

import (
	"fmt"
	"io"
)

// InitError wraps a component initialization failure.
type InitError struct {
	Component string
	Err       error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Component, e.Err)
}

// Unwrap returns the underlying cause.
func (e *InitError) Unwrap() error { return e.Err }

// FetchError reports a non-success HTTP response.
type FetchError struct {
	URL    string
	Status int
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

// maxFetchBody bounds a fetched document (8 MB).
const maxFetchBody = 8 << 20

func readBody(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFetchBody))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
