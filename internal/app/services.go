package app

import (
	"github.com/lexide/lexide/internal/config"
	"github.com/lexide/lexide/internal/container"
	"github.com/lexide/lexide/internal/event"
	"github.com/lexide/lexide/internal/logging"
	"github.com/lexide/lexide/internal/message"
	"github.com/lexide/lexide/internal/notes"
	"github.com/lexide/lexide/internal/security"
	"github.com/lexide/lexide/internal/validate"
)

// Service names registered in the coordinator's container.
const (
	ServiceConfig       = "config"
	ServiceLogger       = "logger"
	ServiceEventBus     = "eventBus"
	ServiceStore        = "store"
	ServiceValidator    = "validator"
	ServiceGuard        = "guard"
	ServiceSandboxGuard = "sandboxGuard"
	ServiceFetcher      = "fetcher"
	ServiceFormatter    = "formatter"
	ServiceNotes        = "noteService"
)

// registerServices populates the container. Leaf values go in as instances;
// composed services resolve their dependencies through the container so the
// wiring graph stays explicit and cycle-checked.
func registerServices(c *container.Container, cfg *config.Config, opts Options, log logging.Logger) error {
	if err := c.RegisterInstance(ServiceConfig, cfg); err != nil {
		return err
	}
	if err := c.RegisterInstance(ServiceLogger, log); err != nil {
		return err
	}

	err := c.Register(ServiceEventBus, func(r container.Resolver) (any, error) {
		l, err := r.Resolve(ServiceLogger)
		if err != nil {
			return nil, err
		}
		return event.NewBus(
			event.WithCatchErrors(true),
			event.WithLogger(l.(logging.Logger)),
		), nil
	}, container.ScopeSingleton)
	if err != nil {
		return err
	}

	err = c.Register(ServiceStore, func(container.Resolver) (any, error) {
		if opts.StorePath == "" {
			return config.NewMemoryStore(), nil
		}
		return config.NewFileStore(opts.StorePath), nil
	}, container.ScopeSingleton)
	if err != nil {
		return err
	}

	err = c.Register(ServiceValidator, func(container.Resolver) (any, error) {
		return newValidator()
	}, container.ScopeSingleton)
	if err != nil {
		return err
	}

	// Each router carries its own guard so internal bridge traffic and
	// peripheral senders never share rate-limit state. The bridge peer
	// context is rate-exempt on its target router: correlated calls such as
	// per-plugin source fetches during a batch load are paced by the bridge,
	// not the window.
	guardFactory := func(ratePeer string) container.Factory {
		return func(r container.Resolver) (any, error) {
			v, err := r.Resolve(ServiceValidator)
			if err != nil {
				return nil, err
			}
			l, err := r.Resolve(ServiceLogger)
			if err != nil {
				return nil, err
			}

			allowed := cfg.Security.AllowedSenders
			if len(allowed) == 0 {
				allowed = []string{
					message.ContextCoordinator,
					message.ContextSandbox,
					message.ContextRelay,
				}
			}
			guardOpts := []security.GuardOption{
				security.WithAllowedSenders(allowed...),
				security.WithValidator(v.(*validate.Validator)),
				security.WithDebugLog(cfg.Security.DebugLog),
				security.WithGuardLogger(l.(logging.Logger)),
			}
			if cfg.Security.RateLimit > 0 {
				guardOpts = append(guardOpts,
					security.WithRateLimit(cfg.Security.RateLimit, cfg.Security.RateWindow),
					security.WithRateExempt(ratePeer))
			}
			return security.NewGuard(guardOpts...), nil
		}
	}
	err = c.Register(ServiceGuard, guardFactory(message.ContextSandbox), container.ScopeSingleton)
	if err != nil {
		return err
	}
	err = c.Register(ServiceSandboxGuard, guardFactory(message.ContextCoordinator), container.ScopeSingleton)
	if err != nil {
		return err
	}

	err = c.Register(ServiceFetcher, func(container.Resolver) (any, error) {
		if opts.Fetcher != nil {
			return opts.Fetcher, nil
		}
		return newHTTPFetcher(), nil
	}, container.ScopeSingleton)
	if err != nil {
		return err
	}

	err = c.Register(ServiceFormatter, func(container.Resolver) (any, error) {
		return notes.NewFormatter(cfg.Notes.Deck, cfg.Notes.Model, cfg.Notes.Tags), nil
	}, container.ScopeSingleton)
	if err != nil {
		return err
	}

	return c.Register(ServiceNotes, func(r container.Resolver) (any, error) {
		if opts.NoteService != nil {
			return opts.NoteService, nil
		}
		l, err := r.Resolve(ServiceLogger)
		if err != nil {
			return nil, err
		}
		return &loggingNoteService{log: l.(logging.Logger)}, nil
	}, container.ScopeSingleton)
}
