// Package bridge emulates request/response semantics over one-directional,
// fire-and-forget envelope channels. Two cooperating agents, one per
// context, pair calls with their eventual responses through correlation IDs;
// a relay forwards envelopes between contexts that cannot talk directly.
package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lexide/lexide/internal/logging"
	"github.com/lexide/lexide/internal/message"
	"github.com/lexide/lexide/internal/router"
)

// ActionPing is the lightweight probe used by the readiness handshake.
const ActionPing = "ping"

// Dispatcher executes inbound calls on the agent's local side.
type Dispatcher interface {
	Route(ctx context.Context, env message.Envelope, senderContext string) router.Response
}

// NotReadyPolicy decides what happens to calls issued before the remote
// context has acknowledged readiness.
type NotReadyPolicy int

const (
	// FailFast resolves calls issued before readiness with a null result.
	FailFast NotReadyPolicy = iota

	// Queue blocks calls issued before readiness until the handshake
	// completes or the caller's context is done.
	Queue
)

// pendingCall is one in-flight request awaiting its callback envelope.
type pendingCall struct {
	action  string
	ch      chan router.Response
	created time.Time
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithCallTimeout bounds how long a call waits for its callback before its
// pending entry is expired. Zero waits on the caller's context alone, which
// preserves the legacy leak-prone behavior; wire a timeout in production.
func WithCallTimeout(d time.Duration) AgentOption {
	return func(a *Agent) { a.callTimeout = d }
}

// WithNotReadyPolicy sets the policy for calls issued before readiness.
func WithNotReadyPolicy(p NotReadyPolicy) AgentOption {
	return func(a *Agent) { a.notReady = p }
}

// WithAgentLogger sets the agent's logger.
func WithAgentLogger(l logging.Logger) AgentOption {
	return func(a *Agent) { a.log = l }
}

// Agent is one side of the RPC bridge. It owns the pending-call table for
// its context and is tolerant of out-of-order responses: correlation IDs are
// the only pairing mechanism, no ordering is assumed or provided.
type Agent struct {
	name   string
	target string
	out    message.Port
	disp   Dispatcher

	mu      sync.Mutex
	pending map[string]*pendingCall

	ready   atomic.Bool
	readyCh chan struct{}
	closed  atomic.Bool

	notReady    NotReadyPolicy
	callTimeout time.Duration
	log         logging.Logger

	janitorDone chan struct{}
	janitorOnce sync.Once
}

// NewAgent creates an agent for the named local context. Outbound envelopes
// are posted to out addressed at target; inbound calls are executed by disp.
func NewAgent(name, target string, out message.Port, disp Dispatcher, opts ...AgentOption) *Agent {
	a := &Agent{
		name:        name,
		target:      target,
		out:         out,
		disp:        disp,
		pending:     make(map[string]*pendingCall),
		readyCh:     make(chan struct{}),
		log:         logging.NoOp{},
		janitorDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the local context name.
func (a *Agent) Name() string { return a.name }

// Ready reports whether the readiness handshake has completed.
func (a *Agent) Ready() bool { return a.ready.Load() }

// Close rejects new calls and stops the expiry janitor. Pending calls are
// resolved with failure responses.
func (a *Agent) Close() {
	if a.closed.Swap(true) {
		return
	}
	a.janitorOnce.Do(func() { close(a.janitorDone) })

	a.mu.Lock()
	pending := a.pending
	a.pending = make(map[string]*pendingCall)
	a.mu.Unlock()

	for _, pc := range pending {
		select {
		case pc.ch <- router.Failure(router.CodeInternal, "request failed"):
		default:
		}
	}
}

// Call issues an envelope toward the remote context and waits for its
// callback. Params are marshaled to JSON; a nil params sends none. Many
// calls may be in flight at once; responses may arrive in any order.
func (a *Agent) Call(ctx context.Context, action string, params any) (router.Response, error) {
	if a.closed.Load() {
		return router.Response{}, ErrClosed
	}

	if action != ActionPing && !a.ready.Load() {
		switch a.notReady {
		case FailFast:
			return NullResponse(), nil
		case Queue:
			select {
			case <-a.readyCh:
			case <-ctx.Done():
				return router.Response{}, ErrNotReady
			}
		}
	}

	env := message.Envelope{
		Action:     action,
		Target:     a.target,
		CallbackID: uuid.NewString(),
		Sender:     a.name,
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return router.Response{}, err
		}
		env.Params = data
	}

	pc := &pendingCall{
		action:  action,
		ch:      make(chan router.Response, 1),
		created: time.Now(),
	}

	a.mu.Lock()
	a.pending[env.CallbackID] = pc
	a.mu.Unlock()

	if err := a.out.Post(env); err != nil {
		a.drop(env.CallbackID)
		return router.Response{}, err
	}

	var expire <-chan time.Time
	if a.callTimeout > 0 {
		timer := time.NewTimer(a.callTimeout)
		defer timer.Stop()
		expire = timer.C
	}

	select {
	case resp := <-pc.ch:
		return resp, nil
	case <-ctx.Done():
		a.drop(env.CallbackID)
		return router.Response{}, ctx.Err()
	case <-expire:
		a.drop(env.CallbackID)
		return router.Response{}, &CallTimeoutError{Action: action, CorrelationID: env.CallbackID}
	}
}

// Notify posts a fire-and-forget envelope with no correlation ID; no
// response will ever arrive for it.
func (a *Agent) Notify(action string, params any) error {
	if a.closed.Load() {
		return ErrClosed
	}

	env := message.Envelope{Action: action, Target: a.target, Sender: a.name}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return err
		}
		env.Params = data
	}
	return a.out.Post(env)
}

// Deliver feeds one inbound envelope to the agent. Callback envelopes
// resolve their pending call; anything else is dispatched locally and, when
// it carries a correlation ID, answered with a callback envelope. Dispatch
// runs on its own goroutine: a handler that issues nested calls must not
// starve the delivery pump its own callbacks arrive on.
func (a *Agent) Deliver(env message.Envelope) {
	if env.Action == message.ActionCallback {
		a.resolve(env)
		return
	}
	go a.dispatch(env)
}

func (a *Agent) dispatch(env message.Envelope) {
	resp := a.disp.Route(context.Background(), env, env.Sender)

	if env.CallbackID == "" {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		a.log.Error("marshal response", "action", env.Action, "error", err)
		data = []byte(`{"ok":false,"code":"internal_error","error":"request failed"}`)
	}

	reply := message.Envelope{
		Action:     message.ActionCallback,
		Params:     data,
		Target:     env.Sender,
		CallbackID: env.CallbackID,
		Sender:     a.name,
	}
	if err := a.out.Post(reply); err != nil {
		a.log.Warn("post callback failed", "action", env.Action, "error", err)
	}
}

// resolve completes a pending call. Unmatched or already-resolved
// correlation IDs are ignored.
func (a *Agent) resolve(env message.Envelope) {
	a.mu.Lock()
	pc, ok := a.pending[env.CallbackID]
	if ok {
		delete(a.pending, env.CallbackID)
	}
	a.mu.Unlock()

	if !ok {
		a.log.Debug("unmatched callback", "callbackId", env.CallbackID)
		return
	}

	var resp router.Response
	if err := json.Unmarshal(env.Params, &resp); err != nil {
		resp = router.Failure(router.CodeInternal, "request failed")
	}

	select {
	case pc.ch <- resp:
	default:
		// Resolver already satisfied; a call resolves at most once.
	}
}

// drop removes a pending entry without resolving it.
func (a *Agent) drop(callbackID string) {
	a.mu.Lock()
	delete(a.pending, callbackID)
	a.mu.Unlock()
}

// PendingCalls returns the number of in-flight calls.
func (a *Agent) PendingCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// WaitReady probes the remote context with ping at a fixed interval until a
// ready acknowledgment is observed or the bounded total wait elapses.
func (a *Agent) WaitReady(ctx context.Context, interval, maxWait time.Duration) error {
	if a.ready.Load() {
		return nil
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if maxWait <= 0 {
		maxWait = 5 * time.Second
	}

	deadline := time.Now().Add(maxWait)
	retries := 0
	for {
		retries++
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		resp, err := a.Call(probeCtx, ActionPing, nil)
		cancel()
		if err == nil && resp.OK {
			a.markReady()
			return nil
		}

		if time.Now().After(deadline) {
			return &ReadinessTimeoutError{Target: a.target, Waited: maxWait, Retries: retries}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// markReady flips the agent to ready and releases queued callers.
func (a *Agent) markReady() {
	if !a.ready.Swap(true) {
		close(a.readyCh)
	}
}

// MarkReady records that the remote context is known to be ready without a
// handshake, for contexts that are wired synchronously at startup.
func (a *Agent) MarkReady() { a.markReady() }

// StartJanitor begins sweeping pending calls older than maxAge, resolving
// them with timeout failures. Without it, a remote that never answers leaks
// its pending entry indefinitely.
func (a *Agent) StartJanitor(interval, maxAge time.Duration) {
	if interval <= 0 || maxAge <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.janitorDone:
				return
			case <-ticker.C:
				a.sweep(maxAge)
			}
		}
	}()
}

// sweep expires pending calls older than maxAge.
func (a *Agent) sweep(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	a.mu.Lock()
	var stale []*pendingCall
	for id, pc := range a.pending {
		if pc.created.Before(cutoff) {
			delete(a.pending, id)
			stale = append(stale, pc)
		}
	}
	a.mu.Unlock()

	for _, pc := range stale {
		a.log.Warn("expired pending call", "action", pc.action)
		select {
		case pc.ch <- router.Failure(router.CodeInternal, "request failed"):
		default:
		}
	}
}

// NullResponse is the successful-but-empty result used when a call is
// resolved without reaching the remote context.
func NullResponse() router.Response {
	return router.Response{OK: true, Result: json.RawMessage("null")}
}
