package bridge

import (
	"sync"

	"github.com/lexide/lexide/internal/logging"
	"github.com/lexide/lexide/internal/message"
)

// Relay forwards envelopes between contexts that cannot exchange messages
// directly. It inspects only the envelope target; payloads pass through
// untouched.
type Relay struct {
	mu     sync.RWMutex
	routes map[string]message.Port
	log    logging.Logger
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithRelayLogger sets the relay's logger.
func WithRelayLogger(l logging.Logger) RelayOption {
	return func(r *Relay) { r.log = l }
}

// NewRelay creates an empty relay.
func NewRelay(opts ...RelayOption) *Relay {
	r := &Relay{
		routes: make(map[string]message.Port),
		log:    logging.NoOp{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach registers the delivery port for a context name, replacing any
// previous registration.
func (r *Relay) Attach(name string, port message.Port) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[name] = port
}

// Detach removes a context's port.
func (r *Relay) Detach(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.routes, name)
}

// Forward routes one envelope to the port registered for its target.
// Envelopes with no target or an unknown target are dropped; the channel is
// fire-and-forget, so there is nobody to answer.
func (r *Relay) Forward(env message.Envelope) {
	if env.Target == "" {
		r.log.Debug("dropping untargeted envelope", "action", env.Action)
		return
	}

	r.mu.RLock()
	port, ok := r.routes[env.Target]
	r.mu.RUnlock()

	if !ok {
		r.log.Debug("dropping envelope for unknown target",
			"action", env.Action, "target", env.Target)
		return
	}

	if err := port.Post(env); err != nil {
		r.log.Warn("forward failed",
			"action", env.Action, "target", env.Target, "error", err)
	}
}

// Port returns the relay's own inbound port.
func (r *Relay) Port() message.Port {
	return message.PortFunc(func(env message.Envelope) error {
		r.Forward(env)
		return nil
	})
}
