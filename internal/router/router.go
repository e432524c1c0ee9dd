// Package router dispatches envelopes to action handlers through an ordered
// middleware chain.
package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lexide/lexide/internal/logging"
	"github.com/lexide/lexide/internal/message"
)

// Sender describes the origin of a request as seen by the receiving context.
// It is constructed per request and discarded after dispatch.
type Sender struct {
	// Context is the claimed originating context name.
	Context string

	// Verified is set by the security layer once the sender checks out.
	Verified bool

	// ValidatedParams holds the params payload after schema validation.
	ValidatedParams []byte

	// Time is when the request entered the router.
	Time time.Time
}

// Handler processes a routed envelope and returns a result value that is
// marshaled into the response.
type Handler func(ctx context.Context, env message.Envelope, sender *Sender) (any, error)

// Next advances the middleware chain.
type Next func(ctx context.Context) Response

// Middleware wraps dispatch. It receives the envelope and sender and decides
// whether to call next.
type Middleware func(ctx context.Context, env message.Envelope, sender *Sender, next Next) Response

// Option configures a Router.
type Option func(*Router)

// WithFailOnUnknown makes Route return a structured error response carrying
// ErrNoHandler's message for unknown actions instead of the generic
// "no handler" response.
func WithFailOnUnknown(fail bool) Option {
	return func(r *Router) { r.failOnUnknown = fail }
}

// WithRouterLogger sets the router's logger.
func WithRouterLogger(l logging.Logger) Option {
	return func(r *Router) { r.log = l }
}

// Router is an action-keyed dispatch table plus an ordered middleware chain.
type Router struct {
	mu            sync.RWMutex
	handlers      map[string]Handler
	middleware    []Middleware
	failOnUnknown bool
	log           logging.Logger
}

// New creates a router.
func New(opts ...Option) *Router {
	r := &Router{
		handlers: make(map[string]Handler),
		log:      logging.NoOp{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds a handler to an action name.
func (r *Router) Register(action string, handler Handler) error {
	if action == "" {
		return ErrEmptyAction
	}
	if handler == nil {
		return ErrNilHandler
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[action]; exists {
		return fmt.Errorf("%w: %s", ErrActionRegistered, action)
	}
	r.handlers[action] = handler
	return nil
}

// Unregister removes the handler for an action. Unknown actions are a no-op.
func (r *Router) Unregister(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, action)
}

// Use appends a middleware to the chain. Middleware run in the order they
// were added, each wrapping the next; the last one added is closest to the
// terminal handler.
func (r *Router) Use(mw Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw)
}

// Actions returns the registered action names.
func (r *Router) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]string, 0, len(r.handlers))
	for a := range r.handlers {
		actions = append(actions, a)
	}
	return actions
}

// Route dispatches an envelope from the named sender context through the
// middleware chain to the action handler. It always returns a structured
// response; handler errors and panics never escape.
func (r *Router) Route(ctx context.Context, env message.Envelope, senderContext string) Response {
	sender := &Sender{Context: senderContext, Time: time.Now()}

	r.mu.RLock()
	handler, found := r.handlers[env.Action]
	chain := make([]Middleware, len(r.middleware))
	copy(chain, r.middleware)
	failOnUnknown := r.failOnUnknown
	r.mu.RUnlock()

	terminal := func(ctx context.Context) Response {
		if env.Action == "" {
			return Failure(CodeInvalidParams, "request failed")
		}
		if !found {
			if failOnUnknown {
				return Failure(CodeNoHandler, ErrNoHandler.Error()+": "+env.Action)
			}
			return Failure(CodeNoHandler, "no handler")
		}
		return r.invoke(ctx, handler, env, sender)
	}

	// Compose right-to-left so the first middleware added runs first.
	next := Next(terminal)
	for i := len(chain) - 1; i >= 0; i-- {
		mw := chain[i]
		inner := next
		next = func(ctx context.Context) Response {
			return mw(ctx, env, sender, inner)
		}
	}

	return next(ctx)
}

// invoke runs the terminal handler, converting errors and panics into
// structured failure responses.
func (r *Router) invoke(ctx context.Context, handler Handler, env message.Envelope, sender *Sender) (resp Response) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.log.Error("handler panic", "action", env.Action, "panic", recovered)
			resp = Failure(CodeInternal, "request failed")
		}
	}()

	result, err := handler(ctx, env, sender)
	if err != nil {
		r.log.Warn("handler error", "action", env.Action, "error", err)
		return Failure(CodeInternal, "request failed")
	}
	return Success(result)
}
