package app

import (
	"context"
	"os"
	"strings"
	"time"

	"log/slog"

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

// janitorInterval is how often background sweeps run.
const janitorInterval = time.Minute

// bootstrapper initializes components in dependency order with cleanup of
// already-initialized components on failure.
type bootstrapper struct {
	app  *Application
	opts Options
}

func newBootstrapper(app *Application, opts Options) *bootstrapper {
	return &bootstrapper{app: app, opts: opts}
}

func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", b.initConfig},
		{"logger", b.initLogger},
		{"container", b.initContainer},
		{"contexts", b.initContexts},
		{"handlers", b.initHandlers},
		{"plugin host", b.initPluginHost},
		{"broadcast", b.initBroadcast},
		{"config watcher", b.initWatcher},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			b.app.Shutdown()
			return &InitError{Component: step.name, Err: err}
		}
	}
	return nil
}

func (b *bootstrapper) initConfig() error {
	cfg, err := config.Load(b.opts.ConfigPath)
	if err != nil {
		return err
	}
	b.app.cfg = cfg
	b.app.configPath = b.opts.ConfigPath

	b.app.locale = b.opts.Locale
	if b.app.locale == "" {
		b.app.locale = detectLocale()
	}
	return nil
}

func (b *bootstrapper) initLogger() error {
	if b.opts.Logger != nil {
		b.app.log = b.opts.Logger
		return nil
	}

	level := slog.LevelInfo
	switch b.app.cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if b.app.cfg.Log.JSON {
		b.app.log = logging.NewJSON(os.Stderr, level)
	} else {
		b.app.log = logging.NewSlog(os.Stderr, level)
	}
	return nil
}

// initContainer registers every service and resolves the leaf ones the
// wiring below needs. Wiring errors abort startup; they indicate a
// misconfiguration, not a runtime condition.
func (b *bootstrapper) initContainer() error {
	c := container.New()
	if err := registerServices(c, b.app.cfg, b.opts, b.app.log); err != nil {
		return err
	}
	b.app.container = c

	bus, err := c.Resolve(ServiceEventBus)
	if err != nil {
		return err
	}
	b.app.bus = bus.(*event.Bus)

	store, err := c.Resolve(ServiceStore)
	if err != nil {
		return err
	}
	b.app.store = store.(config.Store)

	guard, err := c.Resolve(ServiceGuard)
	if err != nil {
		return err
	}
	b.app.guard = guard.(*security.Guard)

	sandboxGuard, err := c.Resolve(ServiceSandboxGuard)
	if err != nil {
		return err
	}
	b.app.sandboxGuard = sandboxGuard.(*security.Guard)

	fetcher, err := c.Resolve(ServiceFetcher)
	if err != nil {
		return err
	}
	b.app.fetcher = fetcher.(Fetcher)

	formatter, err := c.Resolve(ServiceFormatter)
	if err != nil {
		return err
	}
	b.app.formatter = formatter.(*notes.Formatter)

	noteSvc, err := c.Resolve(ServiceNotes)
	if err != nil {
		return err
	}
	b.app.noteSvc = noteSvc.(notes.Service)
	return nil
}

// initContexts stands up the relay and the two agent-backed contexts. The
// coordinator and sandbox never exchange envelopes directly; everything
// crosses the relay.
func (b *bootstrapper) initContexts() error {
	app := b.app
	cfg := app.cfg

	app.relay = bridge.NewRelay(bridge.WithRelayLogger(app.log))

	app.coordRouter = router.New(router.WithRouterLogger(app.log))
	app.sandboxRouter = router.New(router.WithRouterLogger(app.log))
	app.coordRouter.Use(app.guard.Middleware())
	app.sandboxRouter.Use(app.sandboxGuard.Middleware())

	agentOpts := []bridge.AgentOption{
		bridge.WithAgentLogger(app.log),
		bridge.WithCallTimeout(cfg.Bridge.CallTimeout),
	}
	if cfg.Bridge.QueueUntilReady {
		agentOpts = append(agentOpts, bridge.WithNotReadyPolicy(bridge.Queue))
	}

	app.coordAgent = bridge.NewAgent(
		message.ContextCoordinator, message.ContextSandbox,
		app.relay.Port(), app.coordRouter, agentOpts...)
	app.sandboxAgent = bridge.NewAgent(
		message.ContextSandbox, message.ContextCoordinator,
		app.relay.Port(), app.sandboxRouter,
		bridge.WithAgentLogger(app.log))

	app.coordInbox = message.NewInbox(message.ContextCoordinator, 0, app.coordAgent.Deliver)
	app.sandboxInbox = message.NewInbox(message.ContextSandbox, 0, app.sandboxAgent.Deliver)
	app.coordInbox.Start()
	app.sandboxInbox.Start()
	app.relay.Attach(message.ContextCoordinator, app.coordInbox.Port())
	app.relay.Attach(message.ContextSandbox, app.sandboxInbox.Port())

	// The sandbox answers calls; it never probes the coordinator.
	app.sandboxAgent.MarkReady()

	app.coordAgent.StartJanitor(janitorInterval, 2*cfg.Bridge.CallTimeout)
	app.guard.StartJanitor(janitorInterval)
	app.sandboxGuard.StartJanitor(janitorInterval)
	return nil
}

func (b *bootstrapper) initHandlers() error {
	if err := b.app.registerCoordinatorHandlers(); err != nil {
		return err
	}
	return b.app.registerSandboxHandlers()
}

func (b *bootstrapper) initPluginHost() error {
	app := b.app
	cfg := app.cfg.Plugins

	resolver := sandbox.NewSourceResolver(
		sandbox.WithBundledBase(cfg.BundledBase),
		sandbox.WithLibraryBase(cfg.LibraryBase),
		sandbox.WithAllowedHosts(cfg.AllowedHosts...),
	)
	api := sandbox.NewBridgeHostAPI(app.sandboxAgent)
	app.host = sandbox.NewHost(api,
		sandbox.WithSourceResolver(resolver),
		sandbox.WithEvents(app.bus),
		sandbox.WithHostLogger(app.log),
	)
	return nil
}

func (b *bootstrapper) initBroadcast() error {
	if b.opts.BroadcastWriter == nil {
		return nil
	}
	bc, err := newBroadcaster(b.opts.BroadcastWriter, b.app.bus, b.app.log)
	if err != nil {
		return err
	}
	b.app.broadcast = bc
	return nil
}

func (b *bootstrapper) initWatcher() error {
	if !b.opts.WatchConfig || b.opts.ConfigPath == "" {
		return nil
	}
	w, err := config.NewWatcher(b.opts.ConfigPath, b.app.bus,
		config.WithWatcherLogger(b.app.log))
	if err != nil {
		return err
	}
	b.app.watcher = w

	_, err = b.app.bus.On(config.EventConfigChanged, func(any) error {
		b.app.reloadPluginConfig(context.Background())
		return nil
	})
	return err
}

// reloadPluginConfig re-reads the settings file after a change notification
// and pushes the plugin section to the sandbox. The startup configuration
// held by the rest of the application stays as loaded; only plugin selection
// is live-reloadable.
func (app *Application) reloadPluginConfig(ctx context.Context) {
	cfg, err := config.Load(app.configPath)
	if err != nil {
		app.log.Warn("configuration reload failed", "error", err)
		return
	}
	if !app.coordAgent.Ready() {
		return
	}
	params := map[string]any{
		"selected": cfg.Plugins.Selected,
		"autoload": cfg.Plugins.Autoload,
	}
	if _, err := app.coordAgent.Call(ctx, "configure", params); err != nil {
		app.log.Warn("plugin configuration push failed", "error", err)
		return
	}
	app.log.Info("plugin configuration reloaded", "selected", cfg.Plugins.Selected)
}

// detectLocale reads the host locale from the environment.
func detectLocale() string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(name); v != "" {
			if i := strings.IndexAny(v, ".@"); i > 0 {
				v = v[:i]
			}
			return strings.ReplaceAll(v, "_", "-")
		}
	}
	return "en"
}
