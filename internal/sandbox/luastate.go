package sandbox

import (
	"context"

	lua "github.com/yuin/gopher-lua"
)

// newRestrictedState creates a Lua state with only the safe standard
// libraries opened. io, os, debug, and package are never loaded; plugins
// interact with the world through the injected host table alone.
func newRestrictedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Base brings in code-loading primitives that would let a plugin smuggle
	// source past the host. Remove them.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}

	return L
}

// installHostModule injects the host capability table. ctxFn supplies the
// context of the Go call currently driving the Lua state, so relayed
// operations inherit its cancellation.
func installHostModule(L *lua.LState, api HostAPI, ctxFn func() context.Context) {
	host := L.NewTable()

	L.SetField(host, "fetch", L.NewFunction(func(L *lua.LState) int {
		url := L.CheckString(1)
		body, err := api.Fetch(ctxFn(), url)
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LString(body))
		return 1
	}))

	L.SetField(host, "deinflect", L.NewFunction(func(L *lua.LState) int {
		word := L.CheckString(1)
		forms, err := api.Deinflect(ctxFn(), word)
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(stringsToLua(L, forms))
		return 1
	}))

	L.SetField(host, "locale", L.NewFunction(func(L *lua.LState) int {
		tag, err := api.Locale(ctxFn())
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LString(tag))
		return 1
	}))

	L.SetGlobal("host", host)
}
