// Package security wraps request dispatch with sender verification, rate
// limiting, schema validation enforcement, and log redaction. Any failure
// short-circuits the chain: the terminal handler is never invoked and the
// caller receives a structured, generically-worded response.
package security

import (
	"context"
	"time"

	"github.com/lexide/lexide/internal/logging"
	"github.com/lexide/lexide/internal/message"
	"github.com/lexide/lexide/internal/router"
	"github.com/lexide/lexide/internal/validate"
)

// rejectedMessage is the single wording used for every security rejection so
// callers cannot distinguish them from generic failures.
const rejectedMessage = "request failed"

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithAllowedSenders sets the sender allow-list. Requests from any other
// context are rejected.
func WithAllowedSenders(senders ...string) GuardOption {
	return func(g *Guard) {
		g.allowed = make(map[string]bool, len(senders))
		for _, s := range senders {
			g.allowed[s] = true
		}
	}
}

// WithRateLimit caps requests per sender within the trailing window.
func WithRateLimit(limit int, window time.Duration) GuardOption {
	return func(g *Guard) { g.limiter = NewRateLimiter(limit, window) }
}

// WithRateExempt excludes sender contexts from rate limiting. Exempt senders
// still pass allow-list and schema checks.
func WithRateExempt(senders ...string) GuardOption {
	return func(g *Guard) {
		if g.rateExempt == nil {
			g.rateExempt = make(map[string]bool, len(senders))
		}
		for _, s := range senders {
			g.rateExempt[s] = true
		}
	}
}

// WithValidator sets the schema validator enforced before dispatch.
func WithValidator(v *validate.Validator) GuardOption {
	return func(g *Guard) { g.validator = v }
}

// WithDebugLog enables request logging with sensitive fields redacted.
func WithDebugLog(enabled bool) GuardOption {
	return func(g *Guard) { g.debugLog = enabled }
}

// WithSensitiveFields overrides the default redaction paths.
func WithSensitiveFields(fields ...string) GuardOption {
	return func(g *Guard) { g.sensitive = fields }
}

// WithGuardLogger sets the guard's logger.
func WithGuardLogger(l logging.Logger) GuardOption {
	return func(g *Guard) { g.log = l }
}

// Guard is the composed security middleware.
type Guard struct {
	allowed    map[string]bool
	limiter    *RateLimiter
	rateExempt map[string]bool
	validator  *validate.Validator
	debugLog   bool
	sensitive  []string
	log        logging.Logger
}

// NewGuard creates a guard. Without options it verifies nothing and allows
// everything, which is only appropriate in tests.
func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{
		sensitive: DefaultSensitiveFields,
		log:       logging.NoOp{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Close releases the guard's background resources.
func (g *Guard) Close() {
	if g.limiter != nil {
		g.limiter.Stop()
	}
}

// StartJanitor begins periodic pruning of the rate-limit windows.
func (g *Guard) StartJanitor(interval time.Duration) {
	if g.limiter != nil {
		g.limiter.StartJanitor(interval)
	}
}

// Middleware returns the router middleware enforcing the guard's checks in
// order: structural validation, sender verification, then rate limiting.
func (g *Guard) Middleware() router.Middleware {
	return func(ctx context.Context, env message.Envelope, sender *router.Sender, next router.Next) router.Response {
		if g.debugLog {
			g.log.Debug("inbound request",
				"action", env.Action,
				"sender", sender.Context,
				"params", string(Redact(env.Params, g.sensitive)))
		}

		if env.Action == "" {
			return router.Failure(router.CodeInvalidParams, rejectedMessage)
		}

		if g.validator != nil {
			if err := g.validator.Validate(env.Action, env.Params); err != nil {
				g.log.Debug("validation rejected", "action", env.Action, "error", err)
				return router.Failure(router.CodeInvalidParams, rejectedMessage)
			}
			sender.ValidatedParams = env.Params
		}

		if g.allowed != nil && !g.allowed[sender.Context] {
			g.log.Warn("unauthorized sender", "sender", sender.Context, "action", env.Action)
			return router.Failure(router.CodeUnauthorized, rejectedMessage)
		}
		sender.Verified = true

		if g.limiter != nil && !g.rateExempt[sender.Context] && !g.limiter.Allow(sender.Context) {
			g.log.Debug("rate limited", "sender", sender.Context, "action", env.Action)
			return router.Failure(router.CodeRateLimited, rejectedMessage)
		}

		return next(ctx)
	}
}
