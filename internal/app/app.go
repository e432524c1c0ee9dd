// Package app wires the coordinator, sandbox, and relay contexts into a
// running instance: container registrations, routers and their guard,
// the RPC bridge, the plugin host, and the stores.
package app

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lexide/lexide/internal/bridge"
	"github.com/lexide/lexide/internal/config"
	"github.com/lexide/lexide/internal/container"
	"github.com/lexide/lexide/internal/event"
	"github.com/lexide/lexide/internal/logging"
	"github.com/lexide/lexide/internal/message"
	"github.com/lexide/lexide/internal/notes"
	"github.com/lexide/lexide/internal/router"
	"github.com/lexide/lexide/internal/sandbox"
	"github.com/lexide/lexide/internal/security"
)

// Options controls application construction.
type Options struct {
	// ConfigPath is the TOML configuration file. Empty uses defaults.
	ConfigPath string

	// StorePath is the persistent store file. Empty keeps state in memory.
	StorePath string

	// Locale overrides the host locale reported to plugins.
	Locale string

	// Fetcher overrides the coordinator's network fetcher.
	Fetcher Fetcher

	// NoteService overrides the external note-taking client.
	NoteService notes.Service

	// Logger overrides the configured logger.
	Logger logging.Logger

	// WatchConfig enables live configuration reload.
	WatchConfig bool

	// BroadcastWriter, when set, receives framed envelopes mirroring
	// coordinator state changes for out-of-process surfaces.
	BroadcastWriter io.Writer
}

// Fetcher retrieves remote content on behalf of the sandbox. Only the
// coordinator touches the network.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (string, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// Application is a fully wired instance spanning the three contexts.
type Application struct {
	cfg        *config.Config
	configPath string
	log        logging.Logger

	container *container.Container
	bus       *event.Bus
	store     config.Store

	relay        *bridge.Relay
	coordInbox   *message.Inbox
	sandboxInbox *message.Inbox
	coordAgent   *bridge.Agent
	sandboxAgent *bridge.Agent

	coordRouter   *router.Router
	sandboxRouter *router.Router
	guard         *security.Guard
	sandboxGuard  *security.Guard

	host      *sandbox.Host
	formatter *notes.Formatter
	noteSvc   notes.Service
	fetcher   Fetcher
	locale    string

	watcher   *config.Watcher
	broadcast *broadcaster

	hooks hookRegistry

	shutdownOnce sync.Once
	done         chan struct{}
}

// New constructs and starts an application.
func New(opts Options) (*Application, error) {
	app := &Application{done: make(chan struct{})}
	b := newBootstrapper(app, opts)
	if err := b.bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Bus returns the coordinator's event bus.
func (app *Application) Bus() *event.Bus { return app.bus }

// Container returns the coordinator's service container.
func (app *Application) Container() *container.Container { return app.container }

// Store returns the persistent store.
func (app *Application) Store() config.Store { return app.store }

// Config returns the loaded configuration.
func (app *Application) Config() *config.Config { return app.cfg }

// Submit routes one request into the coordinator context on behalf of a
// peripheral surface. This is the broadcast-channel entry point.
func (app *Application) Submit(ctx context.Context, env message.Envelope) router.Response {
	sender := env.Sender
	if sender == "" {
		sender = message.ContextCoordinator
	}
	return app.coordRouter.Route(ctx, env, sender)
}

// CallSandbox issues a correlated call from the coordinator into the sandbox
// context.
func (app *Application) CallSandbox(ctx context.Context, action string, params any) (router.Response, error) {
	return app.coordAgent.Call(ctx, action, params)
}

// WaitSandboxReady probes the sandbox until it acknowledges readiness.
func (app *Application) WaitSandboxReady(ctx context.Context) error {
	return app.coordAgent.WaitReady(ctx, app.cfg.Bridge.ReadyInterval, app.cfg.Bridge.ReadyMaxWait)
}

// Run blocks until the context is cancelled or Shutdown is called.
func (app *Application) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		app.Shutdown()
		return ctx.Err()
	case <-app.done:
		return nil
	}
}

// Shutdown stops every component in reverse initialization order. Safe to
// call more than once.
func (app *Application) Shutdown() {
	app.shutdownOnce.Do(func() {
		if app.watcher != nil {
			app.watcher.Close()
		}
		if app.broadcast != nil {
			app.broadcast.Close()
		}
		if app.coordAgent != nil {
			app.coordAgent.Close()
		}
		if app.sandboxAgent != nil {
			app.sandboxAgent.Close()
		}
		if app.coordInbox != nil {
			app.coordInbox.Stop()
		}
		if app.sandboxInbox != nil {
			app.sandboxInbox.Stop()
		}
		if app.host != nil {
			app.host.Close()
		}
		if app.guard != nil {
			app.guard.Close()
		}
		if app.sandboxGuard != nil {
			app.sandboxGuard.Close()
		}
		if app.bus != nil {
			app.bus.Clear("")
		}
		close(app.done)
	})
}

// newHTTPFetcher returns the default network fetcher.
func newHTTPFetcher() Fetcher {
	client := &http.Client{Timeout: 30 * time.Second}
	return FetcherFunc(func(ctx context.Context, url string) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", &FetchError{URL: url, Status: resp.StatusCode}
		}
		body, err := readBody(resp.Body)
		if err != nil {
			return "", err
		}
		return body, nil
	})
}
