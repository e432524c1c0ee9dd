// Package container provides a dependency registry with lifecycle scopes.
// Services are registered by name with a factory and resolved lazily;
// singleton results are cached, transient results are built per resolve.
package container

import (
	"errors"
	"sync"
)

// Scope controls the lifecycle of a resolved service.
type Scope int

const (
	// ScopeSingleton caches the first resolved instance for the container's
	// lifetime.
	ScopeSingleton Scope = iota

	// ScopeTransient constructs a fresh instance on every resolve.
	ScopeTransient
)

// String returns a human-readable scope name.
func (s Scope) String() string {
	switch s {
	case ScopeSingleton:
		return "singleton"
	case ScopeTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Resolver is the view a factory receives to resolve its own dependencies.
// Resolutions made through it share one "currently resolving" chain, so
// re-entrant resolution of the same name is detected as a cycle.
type Resolver interface {
	Resolve(name string) (any, error)
}

// Factory constructs a service.
type Factory func(r Resolver) (any, error)

// registration is a single named service entry.
type registration struct {
	name     string
	factory  Factory
	scope    Scope
	instance any
	resolved bool
}

// Options configures a container.
type Options struct {
	// AllowOverride permits re-registering an existing name.
	AllowOverride bool
}

// Container is a name-keyed dependency registry.
type Container struct {
	mu       sync.Mutex
	services map[string]*registration
	opts     Options
}

// New creates an empty container.
func New(opts ...Options) *Container {
	c := &Container{services: make(map[string]*registration)}
	if len(opts) > 0 {
		c.opts = opts[0]
	}
	return c
}

// Register adds a named factory with the given scope.
// Registering an existing name fails unless AllowOverride is set.
func (c *Container) Register(name string, factory Factory, scope Scope) error {
	if name == "" {
		return ErrEmptyName
	}
	if factory == nil {
		return ErrNilFactory
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.services[name]; exists && !c.opts.AllowOverride {
		return &AlreadyRegisteredError{Name: name}
	}

	c.services[name] = &registration{
		name:    name,
		factory: factory,
		scope:   scope,
	}
	return nil
}

// RegisterInstance adds a pre-constructed value as a singleton.
func (c *Container) RegisterInstance(name string, value any) error {
	if name == "" {
		return ErrEmptyName
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.services[name]; exists && !c.opts.AllowOverride {
		return &AlreadyRegisteredError{Name: name}
	}

	c.services[name] = &registration{
		name:     name,
		scope:    ScopeSingleton,
		instance: value,
		resolved: true,
	}
	return nil
}

// session tracks one resolution walk. The container lock is held for the
// whole walk, so factories must resolve dependencies through the session
// rather than calling back into the public API.
type session struct {
	c     *Container
	chain []string
}

// Resolve implements Resolver for factories.
func (s *session) Resolve(name string) (any, error) {
	return s.c.resolve(name, s)
}

// Resolve returns the service registered under name, invoking its factory on
// first use. A factory graph that resolves itself fails fast with a
// CircularDependencyError listing the full chain (e.g. A -> B -> A).
func (c *Container) Resolve(name string) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolve(name, &session{c: c})
}

// resolve runs with c.mu held.
func (c *Container) resolve(name string, s *session) (any, error) {
	reg, exists := c.services[name]
	if !exists {
		return nil, &NotFoundError{Name: name}
	}

	if reg.scope == ScopeSingleton && reg.resolved {
		return reg.instance, nil
	}

	for _, active := range s.chain {
		if active == name {
			cycle := append(append([]string{}, s.chain...), name)
			return nil, &CircularDependencyError{Chain: cycle}
		}
	}

	s.chain = append(s.chain, name)
	instance, err := reg.factory(s)
	s.chain = s.chain[:len(s.chain)-1]
	if err != nil {
		return nil, err
	}

	if reg.scope == ScopeSingleton {
		reg.instance = instance
		reg.resolved = true
	}
	return instance, nil
}

// TryResolve returns (value, true) if name resolves, or (nil, false) if it is
// not registered. Factory errors are still returned, including a not-found
// for some other name raised transitively by a factory.
func (c *Container) TryResolve(name string) (any, bool, error) {
	v, err := c.Resolve(name)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) && nf.Name == name {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// Unregister removes a named registration. Removing an unknown name is a
// no-op returning false.
func (c *Container) Unregister(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.services[name]
	delete(c.services, name)
	return exists
}

// Has reports whether name is registered.
func (c *Container) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.services[name]
	return exists
}

// Names returns all registered service names.
func (c *Container) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.services))
	for name := range c.services {
		names = append(names, name)
	}
	return names
}

// CreateChild produces an independent container pre-seeded with the parent's
// registrations. Factories are shared; cached singleton instances built from
// factories are not. Values added via RegisterInstance are shared, since the
// parent never owned a factory for them.
func (c *Container) CreateChild(opts ...Options) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()

	childOpts := c.opts
	if len(opts) > 0 {
		childOpts = opts[0]
	}
	child := New(childOpts)
	for name, reg := range c.services {
		if reg.factory == nil {
			child.services[name] = &registration{
				name:     name,
				scope:    ScopeSingleton,
				instance: reg.instance,
				resolved: true,
			}
			continue
		}
		child.services[name] = &registration{
			name:    name,
			factory: reg.factory,
			scope:   reg.scope,
		}
	}
	return child
}
