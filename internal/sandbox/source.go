package sandbox

import (
	"net/url"
	"path"
	"strings"
)

// LibraryPrefix marks plugin identifiers that resolve into the shared
// plugin library directory.
const LibraryPrefix = "lib/"

// sourceExt is appended to identifiers that omit it.
const sourceExt = ".lua"

// SourceResolver maps plugin identifiers to fetchable locations. Three forms
// are accepted: a bare name (bundled with the host), a lib/ prefixed name
// (shared plugin library), and a full URL against the host allow-list.
type SourceResolver struct {
	bundledBase  string
	libraryBase  string
	allowedHosts map[string]bool
}

// ResolverOption configures a SourceResolver.
type ResolverOption func(*SourceResolver)

// WithBundledBase sets the base location for bundled plugin sources.
func WithBundledBase(base string) ResolverOption {
	return func(r *SourceResolver) { r.bundledBase = base }
}

// WithLibraryBase sets the base location for lib/ prefixed sources.
func WithLibraryBase(base string) ResolverOption {
	return func(r *SourceResolver) { r.libraryBase = base }
}

// WithAllowedHosts sets the hosts remote plugin URLs may name.
func WithAllowedHosts(hosts ...string) ResolverOption {
	return func(r *SourceResolver) {
		for _, h := range hosts {
			r.allowedHosts[strings.ToLower(h)] = true
		}
	}
}

// NewSourceResolver creates a resolver with the given options.
func NewSourceResolver(opts ...ResolverOption) *SourceResolver {
	r := &SourceResolver{
		bundledBase:  "plugins",
		libraryBase:  "plugins/lib",
		allowedHosts: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps one identifier to the location the capability surface should
// fetch. Identifiers escaping their base or naming a non-allow-listed host
// are rejected.
func (r *SourceResolver) Resolve(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyPluginName
	}

	if strings.Contains(name, "://") {
		return r.resolveRemote(name)
	}

	if strings.Contains(name, "..") {
		return "", &SourceError{Name: name, Reason: "path escapes plugin directory"}
	}

	normalized := name
	if !strings.HasSuffix(normalized, sourceExt) {
		normalized += sourceExt
	}

	if rest, ok := strings.CutPrefix(normalized, LibraryPrefix); ok {
		return path.Join(r.libraryBase, rest), nil
	}
	return path.Join(r.bundledBase, normalized), nil
}

func (r *SourceResolver) resolveRemote(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", &SourceError{Name: raw, Reason: "malformed URL"}
	}
	if u.Scheme != "https" {
		return "", &SourceError{Name: raw, Reason: "scheme must be https"}
	}
	if !r.allowedHosts[strings.ToLower(u.Hostname())] {
		return "", &SourceError{Name: raw, Reason: "host is not allow-listed"}
	}
	if !strings.HasSuffix(u.Path, sourceExt) {
		u.Path += sourceExt
	}
	return u.String(), nil
}
