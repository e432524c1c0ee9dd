package sandbox

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/lexide/lexide/internal/logging"
	"github.com/lexide/lexide/internal/lookup"
)

// EventSelectedPlugin is emitted when the selected plugin changes.
const EventSelectedPlugin = "sandbox.plugin.selected"

// EventPluginLoaded is emitted after a plugin instantiates successfully.
const EventPluginLoaded = "sandbox.plugin.loaded"

// Events receives host state-change notifications.
type Events interface {
	Emit(event string, data any) error
}

// record tracks one loaded plugin. Records are never evicted; the registry
// grows for the host's lifetime.
type record struct {
	name        string
	plugin      Plugin
	displayName string
	lastConfig  json.RawMessage
}

// Host owns the plugin registry and the currently selected plugin. It is the
// only component that mutates plugin state; everything else goes through its
// operations.
type Host struct {
	api      HostAPI
	sources  SourceFetcher
	resolver *SourceResolver
	events   Events
	log      logging.Logger

	mu       sync.Mutex
	records  map[string]*record
	order    []string
	selected string
	closed   bool
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithSourceResolver overrides the default source resolver.
func WithSourceResolver(r *SourceResolver) HostOption {
	return func(h *Host) { h.resolver = r }
}

// WithEvents wires state-change notifications to an event sink.
func WithEvents(e Events) HostOption {
	return func(h *Host) { h.events = e }
}

// WithHostLogger sets the host's logger.
func WithHostLogger(l logging.Logger) HostOption {
	return func(h *Host) { h.log = l }
}

// NewHost creates a plugin host over the given capability surface. When api
// also implements SourceFetcher, plugin source is retrieved through that
// path; otherwise source fetches share the data-fetch capability.
func NewHost(api HostAPI, opts ...HostOption) *Host {
	h := &Host{
		api:      api,
		resolver: NewSourceResolver(),
		records:  make(map[string]*record),
		log:      logging.NoOp{},
	}
	if sf, ok := api.(SourceFetcher); ok {
		h.sources = sf
	} else {
		h.sources = fetchAsSource{api}
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// fetchAsSource adapts a plain HostAPI into a SourceFetcher.
type fetchAsSource struct {
	api HostAPI
}

func (f fetchAsSource) FetchSource(ctx context.Context, location string) (string, error) {
	return f.api.Fetch(ctx, location)
}

// Load resolves, fetches, and instantiates one plugin, storing it under its
// canonical name. Compiled built-ins resolve before any source fetch.
// Reloading an already-loaded name replaces its instance.
func (h *Host) Load(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyPluginName
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHostClosed
	}
	h.mu.Unlock()

	plugin, err := h.instantiate(ctx, name)
	if err != nil {
		return err
	}

	displayName := name
	if named, ok := plugin.(Named); ok {
		displayName = named.DisplayName()
	}

	h.mu.Lock()
	prev, existed := h.records[name]
	h.records[name] = &record{name: name, plugin: plugin, displayName: displayName}
	if !existed {
		h.order = append(h.order, name)
	}
	h.mu.Unlock()

	if existed {
		closePlugin(prev.plugin)
	}

	h.log.Info("plugin loaded", "name", name, "displayName", displayName)
	h.emit(EventPluginLoaded, name)
	return nil
}

func (h *Host) instantiate(ctx context.Context, name string) (Plugin, error) {
	if factory, ok := lookupBuiltin(name); ok {
		return factory(h.api), nil
	}

	location, err := h.resolver.Resolve(name)
	if err != nil {
		return nil, &PluginLoadError{Name: name, Err: err}
	}
	source, err := h.sources.FetchSource(ctx, location)
	if err != nil {
		return nil, &PluginLoadError{Name: name, Err: err}
	}
	return LoadLuaPlugin(name, source, h.api)
}

// LoadResult tags one batch entry with its outcome.
type LoadResult struct {
	Name string
	OK   bool
	Err  error
}

// LoadBatch loads plugins concurrently. A failure loading any one plugin is
// caught and reported in its slot only; remaining loads always proceed. The
// result slice has exactly one entry per requested name, in request order.
func (h *Host) LoadBatch(ctx context.Context, names []string) []LoadResult {
	results := make([]LoadResult, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			err := h.Load(ctx, name)
			results[i] = LoadResult{Name: name, OK: err == nil, Err: err}
			if err != nil {
				h.log.Warn("plugin load failed", "name", name, "error", err)
			}
		}(i, name)
	}
	wg.Wait()

	return results
}

// Configure broadcasts the shared configuration object to every loaded
// plugin exposing the optional configuration hook, then updates the selected
// pointer when config names a currently loaded plugin. An unknown selection
// leaves the previous one unchanged.
func (h *Host) Configure(ctx context.Context, config json.RawMessage) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHostClosed
	}
	targets := make([]*record, 0, len(h.order))
	for _, name := range h.order {
		targets = append(targets, h.records[name])
	}
	h.mu.Unlock()

	for _, rec := range targets {
		if configurable, ok := rec.plugin.(Configurable); ok {
			if err := configurable.SetOptions(ctx, config); err != nil {
				h.log.Warn("plugin rejected configuration", "name", rec.name, "error", err)
				continue
			}
		}
		h.mu.Lock()
		rec.lastConfig = config
		h.mu.Unlock()
	}

	if selected := gjson.GetBytes(config, "selected").String(); selected != "" {
		h.mu.Lock()
		_, loaded := h.records[selected]
		changed := loaded && h.selected != selected
		if loaded {
			h.selected = selected
		}
		h.mu.Unlock()

		if changed {
			h.emit(EventSelectedPlugin, selected)
		}
	}
	return nil
}

// FindTerm delegates to the currently selected plugin. No selection, a
// lookup failure, or an unknown word all surface as a nil result.
func (h *Host) FindTerm(ctx context.Context, word string) (*lookup.TermResult, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHostClosed
	}
	rec := h.records[h.selected]
	h.mu.Unlock()

	if rec == nil {
		return nil, nil
	}

	result, err := rec.plugin.FindTerm(ctx, word)
	if err != nil {
		h.log.Warn("lookup failed", "plugin", rec.name, "error", err)
		return nil, nil
	}
	return result, nil
}

// Selected returns the currently selected plugin name, empty if none.
func (h *Host) Selected() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selected
}

// DisplayName returns a loaded plugin's display name.
func (h *Host) DisplayName(name string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.records[name]
	if !ok {
		return "", false
	}
	return rec.displayName, true
}

// Loaded lists loaded plugin names in load order.
func (h *Host) Loaded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Close releases every plugin instance. Further operations fail.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	records := h.records
	h.records = make(map[string]*record)
	h.order = nil
	h.selected = ""
	h.mu.Unlock()

	for _, rec := range records {
		closePlugin(rec.plugin)
	}
	return nil
}

func (h *Host) emit(event string, data any) {
	if h.events == nil {
		return
	}
	if err := h.events.Emit(event, data); err != nil {
		h.log.Warn("event emission failed", "event", event, "error", err)
	}
}

func closePlugin(p Plugin) {
	if closer, ok := p.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
