// Package sandbox loads, instantiates, and invokes untrusted lookup plugins
// inside an isolated execution surface. Plugins reach the outside world only
// through the narrow capability API; they never see host resources, storage,
// or coordinator state.
package sandbox

import (
	"context"
	"encoding/json"

	"github.com/lexide/lexide/internal/lookup"
)

// Plugin is the mandatory surface every lookup plugin exposes. FindTerm
// returns nil with a nil error when the plugin has no definition for the
// word.
type Plugin interface {
	FindTerm(ctx context.Context, word string) (*lookup.TermResult, error)
}

// Named is the optional capability of plugins that declare a display name.
// Checked with a type assertion, never assumed present.
type Named interface {
	DisplayName() string
}

// Configurable is the optional capability of plugins that accept the shared
// configuration object.
type Configurable interface {
	SetOptions(ctx context.Context, options json.RawMessage) error
}
