package app

import (
	"context"
	"encoding/json"
	"sync"
)

// Lifecycle events broadcast on the coordinator's bus.
const (
	EventInstalled = "app.installed"
	EventUpdated   = "app.updated"
)

// hookRegistry holds the callbacks invoked by the host environment's
// lifecycle notifications.
type hookRegistry struct {
	mu      sync.Mutex
	install []func(ctx context.Context) error
	update  []func(ctx context.Context) error
}

// OnInstall registers a callback for first-install.
func (app *Application) OnInstall(fn func(ctx context.Context) error) {
	app.hooks.mu.Lock()
	defer app.hooks.mu.Unlock()
	app.hooks.install = append(app.hooks.install, fn)
}

// OnUpdate registers a callback for version updates.
func (app *Application) OnUpdate(fn func(ctx context.Context) error) {
	app.hooks.mu.Lock()
	defer app.hooks.mu.Unlock()
	app.hooks.update = append(app.hooks.update, fn)
}

// HandleInstall runs once when the host environment reports a fresh
// install: it seeds the shared configuration object from the startup
// configuration, then runs registered hooks.
func (app *Application) HandleInstall(ctx context.Context) error {
	existing, err := app.store.Get(optionsKey)
	if err != nil {
		return err
	}
	if _, seeded := existing[optionsKey]; !seeded {
		defaults := map[string]any{
			"selected": app.cfg.Plugins.Selected,
			"autoload": app.cfg.Plugins.Autoload,
		}
		data, err := json.Marshal(defaults)
		if err != nil {
			return err
		}
		if err := app.store.Set(map[string]json.RawMessage{optionsKey: data}); err != nil {
			return err
		}
	}

	if err := app.runHooks(ctx, app.snapshotHooks(&app.hooks.install)); err != nil {
		return err
	}
	return app.bus.Emit(EventInstalled, nil)
}

// HandleUpdate runs when the host environment reports a version change.
func (app *Application) HandleUpdate(ctx context.Context) error {
	if err := app.runHooks(ctx, app.snapshotHooks(&app.hooks.update)); err != nil {
		return err
	}
	return app.bus.Emit(EventUpdated, nil)
}

func (app *Application) snapshotHooks(src *[]func(ctx context.Context) error) []func(ctx context.Context) error {
	app.hooks.mu.Lock()
	defer app.hooks.mu.Unlock()
	out := make([]func(ctx context.Context) error, len(*src))
	copy(out, *src)
	return out
}

func (app *Application) runHooks(ctx context.Context, hooks []func(ctx context.Context) error) error {
	for _, fn := range hooks {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}
