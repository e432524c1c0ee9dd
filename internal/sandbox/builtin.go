package sandbox

import "sync"

// BuiltinFactory constructs a compiled plugin over the capability surface.
type BuiltinFactory func(api HostAPI) Plugin

// builtins is the compiled, allow-listed plugin registry. Compiled plugins
// resolve by name before any source fetch is attempted, so trusted lookups
// ship with the host and need no interpreter.
var (
	builtinsMu sync.RWMutex
	builtins   = make(map[string]BuiltinFactory)
)

// RegisterBuiltin adds a compiled plugin factory under name. Registration
// normally happens from init functions; duplicate names are a programming
// error.
func RegisterBuiltin(name string, factory BuiltinFactory) error {
	if name == "" {
		return ErrEmptyPluginName
	}
	if factory == nil {
		return &SourceError{Name: name, Reason: "nil factory"}
	}

	builtinsMu.Lock()
	defer builtinsMu.Unlock()
	if _, ok := builtins[name]; ok {
		return ErrBuiltinRegistered
	}
	builtins[name] = factory
	return nil
}

// lookupBuiltin returns the factory registered under name, if any.
func lookupBuiltin(name string) (BuiltinFactory, bool) {
	builtinsMu.RLock()
	defer builtinsMu.RUnlock()
	f, ok := builtins[name]
	return f, ok
}

// BuiltinNames lists registered compiled plugins.
func BuiltinNames() []string {
	builtinsMu.RLock()
	defer builtinsMu.RUnlock()
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	return names
}
