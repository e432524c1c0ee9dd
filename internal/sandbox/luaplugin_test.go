package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// fakeAPI is an in-memory capability surface for tests.
type fakeAPI struct {
	sources   map[string]string
	locale    string
	deinflect map[string][]string
	fetched   []string
}

func (f *fakeAPI) Fetch(_ context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	src, ok := f.sources[url]
	if !ok {
		return "", errors.New("not found")
	}
	return src, nil
}

func (f *fakeAPI) Deinflect(_ context.Context, word string) ([]string, error) {
	return f.deinflect[word], nil
}

func (f *fakeAPI) Locale(_ context.Context) (string, error) {
	return f.locale, nil
}

const greetingSource = `
function findTerm(word)
	return { expression = "hello", definitions = { "greeting" } }
end
`

func TestLoadLuaPlugin_FindTerm(t *testing.T) {
	p, err := LoadLuaPlugin("greeting", greetingSource, &fakeAPI{})
	if err != nil {
		t.Fatalf("LoadLuaPlugin() failed: %v", err)
	}

	res, err := p.FindTerm(context.Background(), "anything")
	if err != nil {
		t.Fatalf("FindTerm() failed: %v", err)
	}
	if res == nil || res.Expression != "hello" {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Definitions) != 1 || res.Definitions[0] != "greeting" {
		t.Errorf("definitions = %v", res.Definitions)
	}
}

func TestLoadLuaPlugin_NilResult(t *testing.T) {
	src := `function findTerm(word) return nil end`
	p, err := LoadLuaPlugin("empty", src, &fakeAPI{})
	if err != nil {
		t.Fatal(err)
	}

	res, err := p.FindTerm(context.Background(), "missing")
	if err != nil {
		t.Fatalf("FindTerm() failed: %v", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
}

func TestLoadLuaPlugin_MissingFindTerm(t *testing.T) {
	_, err := LoadLuaPlugin("broken", `x = 1`, &fakeAPI{})
	var ple *PluginLoadError
	if !errors.As(err, &ple) {
		t.Fatalf("expected PluginLoadError, got %v", err)
	}
}

func TestLoadLuaPlugin_SyntaxError(t *testing.T) {
	_, err := LoadLuaPlugin("broken", `function findTerm(`, &fakeAPI{})
	var ple *PluginLoadError
	if !errors.As(err, &ple) {
		t.Fatalf("expected PluginLoadError, got %v", err)
	}
}

func TestLoadLuaPlugin_OptionalCapabilities(t *testing.T) {
	full := `
function findTerm(word) return nil end
function displayName() return "Full Plugin" end
function setOptions(options) configured = options.mode end
`
	p, err := LoadLuaPlugin("full", full, &fakeAPI{})
	if err != nil {
		t.Fatal(err)
	}

	named, ok := p.(Named)
	if !ok {
		t.Fatal("plugin does not expose Named")
	}
	if got := named.DisplayName(); got != "Full Plugin" {
		t.Errorf("DisplayName() = %q", got)
	}

	configurable, ok := p.(Configurable)
	if !ok {
		t.Fatal("plugin does not expose Configurable")
	}
	if err := configurable.SetOptions(context.Background(), json.RawMessage(`{"mode":"strict"}`)); err != nil {
		t.Fatalf("SetOptions() failed: %v", err)
	}

	bare, err := LoadLuaPlugin("bare", greetingSource, &fakeAPI{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := bare.(Named); ok {
		t.Error("bare plugin claims Named")
	}
	if _, ok := bare.(Configurable); ok {
		t.Error("bare plugin claims Configurable")
	}
}

func TestLoadLuaPlugin_HostCapabilities(t *testing.T) {
	api := &fakeAPI{
		locale:    "ja",
		deinflect: map[string][]string{"running": {"run"}},
	}
	src := `
function findTerm(word)
	local forms = host.deinflect(word)
	return {
		expression = forms[1],
		definitions = { "locale:" .. host.locale() },
	}
end
`
	p, err := LoadLuaPlugin("caps", src, api)
	if err != nil {
		t.Fatal(err)
	}

	res, err := p.FindTerm(context.Background(), "running")
	if err != nil {
		t.Fatalf("FindTerm() failed: %v", err)
	}
	if res.Expression != "run" {
		t.Errorf("expression = %q", res.Expression)
	}
	if len(res.Definitions) != 1 || res.Definitions[0] != "locale:ja" {
		t.Errorf("definitions = %v", res.Definitions)
	}
}

func TestRestrictedState_RemovesCodeLoading(t *testing.T) {
	// Each of these must fail: the loading primitives are removed and the
	// io/os/debug libraries are never opened.
	escapes := []string{
		`function findTerm(w) return nil end
		 load("return 1")()`,
		`function findTerm(w) return nil end
		 dofile("/etc/passwd")`,
		`function findTerm(w) return nil end
		 io.open("/etc/passwd")`,
		`function findTerm(w) return nil end
		 os.getenv("HOME")`,
	}
	for _, src := range escapes {
		if _, err := LoadLuaPlugin("escape", src, &fakeAPI{}); err == nil {
			t.Errorf("source was not blocked:\n%s", strings.TrimSpace(src))
		}
	}
}
