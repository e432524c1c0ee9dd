package sandbox

import (
	"encoding/json"

	lua "github.com/yuin/gopher-lua"

	"github.com/lexide/lexide/internal/lookup"
)

// luaToTermResult converts a plugin's findTerm return table into a result.
func luaToTermResult(tbl *lua.LTable) *lookup.TermResult {
	res := &lookup.TermResult{}
	tbl.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		switch string(key) {
		case "expression":
			res.Expression = lua.LVAsString(v)
		case "reading":
			res.Reading = lua.LVAsString(v)
		case "url":
			res.URL = lua.LVAsString(v)
		case "definitions":
			if t, ok := v.(*lua.LTable); ok {
				res.Definitions = luaToStrings(t)
			}
		case "tags":
			if t, ok := v.(*lua.LTable); ok {
				res.Tags = luaToStrings(t)
			}
		}
	})
	return res
}

// luaToStrings converts an array-style table into a string slice.
func luaToStrings(tbl *lua.LTable) []string {
	out := make([]string, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		out = append(out, lua.LVAsString(tbl.RawGetInt(i)))
	}
	return out
}

// stringsToLua converts a string slice into an array-style table.
func stringsToLua(L *lua.LState, values []string) *lua.LTable {
	tbl := L.NewTable()
	for _, v := range values {
		tbl.Append(lua.LString(v))
	}
	return tbl
}

// jsonToLua converts decoded JSON into Lua values. Objects become tables
// keyed by field name, arrays become sequence tables.
func jsonToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(jsonToLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, jsonToLua(L, item))
		}
		return tbl
	default:
		return lua.LNil
	}
}

// rawJSONToLua decodes a raw JSON payload and converts it to a Lua value.
func rawJSONToLua(L *lua.LState, raw json.RawMessage) (lua.LValue, error) {
	if len(raw) == 0 {
		return lua.LNil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return lua.LNil, err
	}
	return jsonToLua(L, v), nil
}
