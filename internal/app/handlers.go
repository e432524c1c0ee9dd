package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/lexide/lexide/internal/logging"
	"github.com/lexide/lexide/internal/lookup"
	"github.com/lexide/lexide/internal/message"
	"github.com/lexide/lexide/internal/notes"
	"github.com/lexide/lexide/internal/router"
)

// EventOptionsChanged is emitted after setOptions persists a new shared
// configuration object.
const EventOptionsChanged = "options.changed"

// optionsKey is the store key holding the shared configuration object.
const optionsKey = "options"

// registerCoordinatorHandlers binds the trusted context's actions.
func (app *Application) registerCoordinatorHandlers() error {
	handlers := map[string]router.Handler{
		"ping":        app.handlePing,
		"fetch":       app.handleFetch,
		"fetchSource": app.handleFetchSource,
		"deinflect":   app.handleDeinflect,
		"locale":      app.handleLocale,
		"getOptions":  app.handleGetOptions,
		"setOptions":  app.handleSetOptions,
		"addNote":     app.handleAddNote,
		"findTerm":    app.forwardToSandbox,
		"loadPlugins": app.forwardToSandbox,
	}
	for action, h := range handlers {
		if err := app.coordRouter.Register(action, h); err != nil {
			return err
		}
	}
	return nil
}

// registerSandboxHandlers binds the untrusted context's actions.
func (app *Application) registerSandboxHandlers() error {
	handlers := map[string]router.Handler{
		"ping":        app.handlePing,
		"findTerm":    app.handleFindTerm,
		"loadPlugins": app.handleLoadPlugins,
		"configure":   app.handleConfigure,
	}
	for action, h := range handlers {
		if err := app.sandboxRouter.Register(action, h); err != nil {
			return err
		}
	}
	return nil
}

func (app *Application) handlePing(context.Context, message.Envelope, *router.Sender) (any, error) {
	return map[string]bool{"ready": true}, nil
}

func (app *Application) handleFetch(ctx context.Context, env message.Envelope, _ *router.Sender) (any, error) {
	var params struct {
		URL string `json:"url"`
	}
	if err := env.DecodeParams(&params); err != nil {
		return nil, err
	}
	return app.fetcher.Fetch(ctx, params.URL)
}

// handleFetchSource serves plugin source to the sandbox. The sender field is
// self-declared, so the claimed context alone grants nothing: every location
// must land inside a configured plugin directory or name an allow-listed
// https host, the same bounds the sandbox-side resolver enforces.
func (app *Application) handleFetchSource(ctx context.Context, env message.Envelope, sender *router.Sender) (any, error) {
	if sender.Context != message.ContextSandbox {
		return nil, fmt.Errorf("source fetch refused for context %q", sender.Context)
	}

	var params struct {
		Location string `json:"location"`
	}
	if err := env.DecodeParams(&params); err != nil {
		return nil, err
	}

	if strings.Contains(params.Location, "://") {
		u, err := url.Parse(params.Location)
		if err != nil || u.Scheme != "https" {
			return nil, fmt.Errorf("source location %q is not https", params.Location)
		}
		if !app.allowedSourceHost(u.Hostname()) {
			return nil, fmt.Errorf("source host %q is not allow-listed", u.Hostname())
		}
		return app.fetcher.Fetch(ctx, params.Location)
	}

	location := filepath.Clean(params.Location)
	if !app.sourceWithinRoots(location) {
		return nil, fmt.Errorf("source location %q is outside the plugin directories", params.Location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// sourceWithinRoots reports whether a cleaned location falls under one of the
// configured plugin source directories. Absolute locations only pass when the
// configured base itself is absolute and contains them.
func (app *Application) sourceWithinRoots(location string) bool {
	for _, base := range []string{app.cfg.Plugins.BundledBase, app.cfg.Plugins.LibraryBase} {
		if base == "" {
			continue
		}
		rel, err := filepath.Rel(filepath.Clean(base), location)
		if err != nil {
			continue
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return true
	}
	return false
}

func (app *Application) allowedSourceHost(host string) bool {
	for _, h := range app.cfg.Plugins.AllowedHosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

// forwardToSandbox relays an action to the sandbox context unchanged and
// returns the sandbox's result as its own.
func (app *Application) forwardToSandbox(ctx context.Context, env message.Envelope, _ *router.Sender) (any, error) {
	var params any
	if len(env.Params) > 0 {
		params = json.RawMessage(env.Params)
	}
	resp, err := app.coordAgent.Call(ctx, env.Action, params)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, errors.New(resp.Error)
	}
	if len(resp.Result) == 0 {
		return nil, nil
	}
	return resp.Result, nil
}

func (app *Application) handleDeinflect(_ context.Context, env message.Envelope, _ *router.Sender) (any, error) {
	var params struct {
		Word string `json:"word"`
	}
	if err := env.DecodeParams(&params); err != nil {
		return nil, err
	}
	return lookup.Deinflect(params.Word), nil
}

func (app *Application) handleLocale(context.Context, message.Envelope, *router.Sender) (any, error) {
	return app.locale, nil
}

func (app *Application) handleGetOptions(context.Context, message.Envelope, *router.Sender) (any, error) {
	record, err := app.store.Get(optionsKey)
	if err != nil {
		return nil, err
	}
	if options, ok := record[optionsKey]; ok {
		return options, nil
	}
	return json.RawMessage(`{}`), nil
}

// handleSetOptions persists the shared configuration object, broadcasts the
// change locally, and forwards it to the sandbox so loaded plugins reconfigure.
func (app *Application) handleSetOptions(ctx context.Context, env message.Envelope, _ *router.Sender) (any, error) {
	var params struct {
		Options json.RawMessage `json:"options"`
	}
	if err := env.DecodeParams(&params); err != nil {
		return nil, err
	}

	if err := app.store.Set(map[string]json.RawMessage{optionsKey: params.Options}); err != nil {
		return nil, err
	}
	if err := app.bus.Emit(EventOptionsChanged, params.Options); err != nil {
		app.log.Warn("options broadcast failed", "error", err)
	}

	// The sandbox may not be up yet; the options land there on the next
	// configuration push once it is.
	if app.coordAgent.Ready() {
		if _, err := app.coordAgent.Call(ctx, "configure", params.Options); err != nil {
			app.log.Warn("sandbox configuration push failed", "error", err)
		}
	}
	return map[string]bool{"ok": true}, nil
}

// handleAddNote looks the word up through the sandbox and hands the formatted
// note to the external note service. A word with no definition yields a null
// result, not an error.
func (app *Application) handleAddNote(ctx context.Context, env message.Envelope, _ *router.Sender) (any, error) {
	var params struct {
		Word string `json:"word"`
	}
	if err := env.DecodeParams(&params); err != nil {
		return nil, err
	}

	resp, err := app.coordAgent.Call(ctx, "findTerm", map[string]string{"word": params.Word})
	if err != nil {
		return nil, err
	}

	var result *lookup.TermResult
	if resp.OK {
		if err := resp.DecodeResult(&result); err != nil {
			return nil, err
		}
	}
	if result == nil || result.IsEmpty() {
		return nil, nil
	}

	note, err := app.formatter.Format(result)
	if err != nil {
		return nil, err
	}
	id, err := app.noteSvc.AddNote(ctx, note)
	if err != nil {
		return nil, err
	}
	return map[string]string{"noteId": id}, nil
}

func (app *Application) handleFindTerm(ctx context.Context, env message.Envelope, _ *router.Sender) (any, error) {
	var params struct {
		Word string `json:"word"`
	}
	if err := env.DecodeParams(&params); err != nil {
		return nil, err
	}
	result, err := app.host.FindTerm(ctx, params.Word)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result, nil
}

func (app *Application) handleLoadPlugins(ctx context.Context, env message.Envelope, _ *router.Sender) (any, error) {
	var params struct {
		Names []string `json:"names"`
	}
	if err := env.DecodeParams(&params); err != nil {
		return nil, err
	}

	results := app.host.LoadBatch(ctx, params.Names)
	out := make([]map[string]any, len(results))
	for i, r := range results {
		out[i] = map[string]any{"name": r.Name, "ok": r.OK}
	}
	return out, nil
}

func (app *Application) handleConfigure(ctx context.Context, env message.Envelope, _ *router.Sender) (any, error) {
	if err := app.host.Configure(ctx, env.Params); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

// loggingNoteService stands in when no external note client is wired. It
// records the note in the log and reports success so lookups stay usable in
// a disconnected session.
type loggingNoteService struct {
	log logging.Logger
}

func (s *loggingNoteService) AddNote(_ context.Context, note notes.Note) (string, error) {
	s.log.Info("note created (no service configured)",
		"deck", note.Deck, "expression", note.Fields["Expression"])
	return "local", nil
}
