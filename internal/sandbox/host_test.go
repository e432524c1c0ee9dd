package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/lexide/lexide/internal/lookup"
)

func greetingAPI(names ...string) *fakeAPI {
	api := &fakeAPI{sources: make(map[string]string)}
	for _, name := range names {
		api.sources["plugins/"+name+".lua"] = greetingSource
	}
	return api
}

func TestHost_LoadAndFindTerm(t *testing.T) {
	h := NewHost(greetingAPI("greeting"))
	defer h.Close()

	if err := h.Load(context.Background(), "greeting"); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if err := h.Configure(context.Background(), json.RawMessage(`{"selected":"greeting"}`)); err != nil {
		t.Fatalf("Configure() failed: %v", err)
	}

	res, err := h.FindTerm(context.Background(), "hello")
	if err != nil {
		t.Fatalf("FindTerm() failed: %v", err)
	}
	want := &lookup.TermResult{Expression: "hello", Definitions: []string{"greeting"}}
	if res == nil || res.Expression != want.Expression {
		t.Fatalf("result = %+v, want %+v", res, want)
	}
	if len(res.Definitions) != 1 || res.Definitions[0] != "greeting" {
		t.Errorf("definitions = %v", res.Definitions)
	}
}

func TestHost_FindTermWithoutSelection(t *testing.T) {
	h := NewHost(greetingAPI("greeting"))
	defer h.Close()

	if err := h.Load(context.Background(), "greeting"); err != nil {
		t.Fatal(err)
	}

	// Loaded but never selected: lookups answer nil, not an error.
	res, err := h.FindTerm(context.Background(), "hello")
	if err != nil {
		t.Fatalf("FindTerm() failed: %v", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
}

func TestHost_LoadBatchIsolatesFailures(t *testing.T) {
	// 5 requested, 2 have no source to fetch.
	api := greetingAPI("a", "b", "c")
	h := NewHost(api)
	defer h.Close()

	names := []string{"a", "missing1", "b", "missing2", "c"}
	results := h.LoadBatch(context.Background(), names)

	if len(results) != len(names) {
		t.Fatalf("got %d results, want %d", len(results), len(names))
	}
	okCount := 0
	for i, r := range results {
		if r.Name != names[i] {
			t.Errorf("result %d tagged %q, want %q", i, r.Name, names[i])
		}
		if r.OK {
			okCount++
		} else {
			var ple *PluginLoadError
			if !errors.As(r.Err, &ple) {
				t.Errorf("failure for %q is %v, want PluginLoadError", r.Name, r.Err)
			}
		}
	}
	if okCount != 3 {
		t.Errorf("ok count = %d, want 3", okCount)
	}

	loaded := h.Loaded()
	if len(loaded) != 3 {
		t.Errorf("loaded = %v", loaded)
	}
}

func TestHost_ConfigureBroadcastsAndSelects(t *testing.T) {
	configurable := `
function findTerm(word) return { expression = mode or "unset" } end
function setOptions(options) mode = options.mode end
`
	api := &fakeAPI{sources: map[string]string{
		"plugins/tunable.lua": configurable,
		"plugins/plain.lua":   greetingSource,
	}}
	h := NewHost(api)
	defer h.Close()

	for _, name := range []string{"tunable", "plain"} {
		if err := h.Load(context.Background(), name); err != nil {
			t.Fatal(err)
		}
	}

	config := json.RawMessage(`{"mode":"strict","selected":"tunable"}`)
	if err := h.Configure(context.Background(), config); err != nil {
		t.Fatalf("Configure() failed: %v", err)
	}
	if got := h.Selected(); got != "tunable" {
		t.Fatalf("Selected() = %q", got)
	}

	res, err := h.FindTerm(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || res.Expression != "strict" {
		t.Errorf("configuration did not reach plugin: %+v", res)
	}
}

func TestHost_ConfigureUnknownSelectionUnchanged(t *testing.T) {
	h := NewHost(greetingAPI("greeting"))
	defer h.Close()

	if err := h.Load(context.Background(), "greeting"); err != nil {
		t.Fatal(err)
	}
	if err := h.Configure(context.Background(), json.RawMessage(`{"selected":"greeting"}`)); err != nil {
		t.Fatal(err)
	}
	if err := h.Configure(context.Background(), json.RawMessage(`{"selected":"never-loaded"}`)); err != nil {
		t.Fatal(err)
	}
	if got := h.Selected(); got != "greeting" {
		t.Errorf("Selected() = %q, want previous selection kept", got)
	}
}

func TestHost_DisplayNameFallsBackToName(t *testing.T) {
	named := `
function findTerm(word) return nil end
function displayName() return "Fancy Dictionary" end
`
	api := &fakeAPI{sources: map[string]string{
		"plugins/fancy.lua": named,
		"plugins/plain.lua": greetingSource,
	}}
	h := NewHost(api)
	defer h.Close()

	for _, name := range []string{"fancy", "plain"} {
		if err := h.Load(context.Background(), name); err != nil {
			t.Fatal(err)
		}
	}

	if got, _ := h.DisplayName("fancy"); got != "Fancy Dictionary" {
		t.Errorf("DisplayName(fancy) = %q", got)
	}
	if got, _ := h.DisplayName("plain"); got != "plain" {
		t.Errorf("DisplayName(plain) = %q", got)
	}
}

type staticPlugin struct{ result *lookup.TermResult }

func (p *staticPlugin) FindTerm(context.Context, string) (*lookup.TermResult, error) {
	return p.result, nil
}

func TestHost_BuiltinResolvesBeforeFetch(t *testing.T) {
	err := RegisterBuiltin("compiled-dict", func(HostAPI) Plugin {
		return &staticPlugin{result: &lookup.TermResult{Expression: "compiled"}}
	})
	if err != nil {
		t.Fatal(err)
	}

	api := &fakeAPI{sources: map[string]string{}}
	h := NewHost(api)
	defer h.Close()

	if err := h.Load(context.Background(), "compiled-dict"); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(api.fetched) != 0 {
		t.Errorf("built-in load fetched %v", api.fetched)
	}

	if err := h.Configure(context.Background(), json.RawMessage(`{"selected":"compiled-dict"}`)); err != nil {
		t.Fatal(err)
	}
	res, err := h.FindTerm(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || res.Expression != "compiled" {
		t.Errorf("result = %+v", res)
	}
}

func TestRegisterBuiltin_Validation(t *testing.T) {
	if err := RegisterBuiltin("", func(HostAPI) Plugin { return nil }); !errors.Is(err, ErrEmptyPluginName) {
		t.Errorf("empty name: got %v", err)
	}
	if err := RegisterBuiltin("dup-check", func(HostAPI) Plugin { return nil }); err != nil {
		t.Fatal(err)
	}
	if err := RegisterBuiltin("dup-check", func(HostAPI) Plugin { return nil }); !errors.Is(err, ErrBuiltinRegistered) {
		t.Errorf("duplicate: got %v", err)
	}
}

type recordingEvents struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingEvents) Emit(event string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func TestHost_EmitsStateChanges(t *testing.T) {
	sink := &recordingEvents{}
	h := NewHost(greetingAPI("greeting"), WithEvents(sink))
	defer h.Close()

	if err := h.Load(context.Background(), "greeting"); err != nil {
		t.Fatal(err)
	}
	if err := h.Configure(context.Background(), json.RawMessage(`{"selected":"greeting"}`)); err != nil {
		t.Fatal(err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 2 || sink.events[0] != EventPluginLoaded || sink.events[1] != EventSelectedPlugin {
		t.Errorf("events = %v", sink.events)
	}
}
