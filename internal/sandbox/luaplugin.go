package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/lexide/lexide/internal/lookup"
)

// luaPlugin drives one plugin's Lua state. The state is not goroutine-safe,
// so every entry point serializes on the mutex; the context of the active Go
// call is stashed so host.* operations inherit its cancellation.
type luaPlugin struct {
	mu     sync.Mutex
	L      *lua.LState
	ctx    context.Context
	name   string
	closed bool

	hasDisplayName bool
	hasSetOptions  bool
}

// LoadLuaPlugin instantiates plugin source inside a restricted Lua state.
// The returned plugin exposes the optional capabilities the source actually
// defines: displayName and setOptions are probed once at load, never assumed.
func LoadLuaPlugin(name, source string, api HostAPI) (Plugin, error) {
	lp := &luaPlugin{
		L:    newRestrictedState(),
		ctx:  context.Background(),
		name: name,
	}
	installHostModule(lp.L, api, func() context.Context { return lp.ctx })

	if err := lp.run(func() error { return lp.L.DoString(source) }); err != nil {
		lp.L.Close()
		return nil, &PluginLoadError{Name: name, Err: err}
	}

	if lp.L.GetGlobal("findTerm").Type() != lua.LTFunction {
		lp.L.Close()
		return nil, &PluginLoadError{Name: name, Err: fmt.Errorf("source defines no findTerm function")}
	}
	lp.hasDisplayName = lp.L.GetGlobal("displayName").Type() == lua.LTFunction
	lp.hasSetOptions = lp.L.GetGlobal("setOptions").Type() == lua.LTFunction

	return wrapLuaPlugin(lp), nil
}

// run executes fn with panic recovery; a Lua runtime panic becomes an error.
func (p *luaPlugin) run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// call invokes a global plugin function and returns its first result.
func (p *luaPlugin) call(ctx context.Context, fn string, args ...lua.LValue) (lua.LValue, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return lua.LNil, ErrHostClosed
	}

	p.ctx = ctx
	defer func() { p.ctx = context.Background() }()

	var ret lua.LValue = lua.LNil
	err := p.run(func() error {
		fnVal := p.L.GetGlobal(fn)
		if fnVal.Type() != lua.LTFunction {
			return fmt.Errorf("function %q not found", fn)
		}
		p.L.Push(fnVal)
		for _, arg := range args {
			p.L.Push(arg)
		}
		if err := p.L.PCall(len(args), 1, nil); err != nil {
			return err
		}
		ret = p.L.Get(-1)
		p.L.Pop(1)
		return nil
	})
	return ret, err
}

// FindTerm implements Plugin. A nil or non-table return means no definition.
func (p *luaPlugin) FindTerm(ctx context.Context, word string) (*lookup.TermResult, error) {
	ret, err := p.call(ctx, "findTerm", lua.LString(word))
	if err != nil {
		return nil, err
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, nil
	}
	return luaToTermResult(tbl), nil
}

func (p *luaPlugin) displayName() string {
	ret, err := p.call(context.Background(), "displayName")
	if err != nil {
		return p.name
	}
	if s, ok := ret.(lua.LString); ok {
		return string(s)
	}
	return p.name
}

func (p *luaPlugin) setOptions(ctx context.Context, options json.RawMessage) error {
	p.mu.Lock()
	arg, err := rawJSONToLua(p.L, options)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	_, err = p.call(ctx, "setOptions", arg)
	return err
}

// Close releases the Lua state.
func (p *luaPlugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.L.Close()
	return nil
}

// Wrapper types expose exactly the optional capabilities the source defines,
// so capability queries stay type assertions on the host side.

type namedLuaPlugin struct{ *luaPlugin }

func (p namedLuaPlugin) DisplayName() string { return p.displayName() }

type configurableLuaPlugin struct{ *luaPlugin }

func (p configurableLuaPlugin) SetOptions(ctx context.Context, options json.RawMessage) error {
	return p.setOptions(ctx, options)
}

type fullLuaPlugin struct{ *luaPlugin }

func (p fullLuaPlugin) DisplayName() string { return p.displayName() }

func (p fullLuaPlugin) SetOptions(ctx context.Context, options json.RawMessage) error {
	return p.setOptions(ctx, options)
}

func wrapLuaPlugin(p *luaPlugin) Plugin {
	switch {
	case p.hasDisplayName && p.hasSetOptions:
		return fullLuaPlugin{p}
	case p.hasDisplayName:
		return namedLuaPlugin{p}
	case p.hasSetOptions:
		return configurableLuaPlugin{p}
	default:
		return p
	}
}
