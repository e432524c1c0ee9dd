// Package message defines the canonical envelope exchanged across every
// context boundary and the one-directional delivery ports that carry it.
package message

import (
	"encoding/json"
	"errors"
)

// Context names for the three execution surfaces.
const (
	ContextCoordinator = "coordinator"
	ContextSandbox     = "sandbox"
	ContextRelay       = "relay"
)

// ActionCallback is the distinguished action used to deliver the result of a
// previously issued call back to its origin. The callbackId pairs the two.
const ActionCallback = "callback"

// Envelope is the wire shape used at every context boundary.
type Envelope struct {
	// Action identifies the operation. Must be non-empty.
	Action string `json:"action"`

	// Params is the opaque, action-specific payload.
	Params json.RawMessage `json:"params,omitempty"`

	// Target names the context that should receive this envelope when more
	// than one listener observes the same delivery channel.
	Target string `json:"target,omitempty"`

	// CallbackID is the correlation ID pairing a request with its response.
	CallbackID string `json:"callbackId,omitempty"`

	// Sender identifies the issuing context. Verified by the security layer.
	Sender string `json:"sender,omitempty"`
}

// ErrEmptyAction is returned when an envelope carries no action.
var ErrEmptyAction = errors.New("envelope action is empty")

// Validate checks the envelope's structural invariants.
func (e *Envelope) Validate() error {
	if e.Action == "" {
		return ErrEmptyAction
	}
	return nil
}

// WithParams returns a copy of the envelope with params marshaled from v.
func (e Envelope) WithParams(v any) (Envelope, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return e, err
	}
	e.Params = data
	return e, nil
}

// DecodeParams unmarshals the params payload into v.
func (e *Envelope) DecodeParams(v any) error {
	if len(e.Params) == 0 {
		return nil
	}
	return json.Unmarshal(e.Params, v)
}

// Port is a one-directional, fire-and-forget delivery channel into a context.
// Post must not block on the receiving context's handler execution.
type Port interface {
	Post(env Envelope) error
}

// PortFunc adapts a function to the Port interface.
type PortFunc func(env Envelope) error

// Post implements Port.
func (f PortFunc) Post(env Envelope) error { return f(env) }
