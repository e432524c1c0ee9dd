package sandbox

import (
	"context"

	"github.com/lexide/lexide/internal/lookup"
)

// OfflineDictName is the registry name of the compiled fallback dictionary.
const OfflineDictName = "offline"

func init() {
	if err := RegisterBuiltin(OfflineDictName, NewOfflineDict); err != nil {
		panic(err)
	}
}

// offlineEntries is a deliberately small glossary. The offline dictionary is
// a fallback for disconnected sessions, not a real lexicon; dictionary
// plugins do the heavy lifting.
var offlineEntries = map[string][]string{
	"hello":      {"used as a greeting"},
	"goodbye":    {"used when parting"},
	"word":       {"a single distinct element of speech or writing"},
	"dictionary": {"a reference listing words and their meanings"},
	"plugin":     {"a component extending a host program"},
	"note":       {"a brief written record"},
	"card":       {"a piece of stiff paper used for study prompts"},
	"study":      {"devote time to acquiring knowledge"},
	"read":       {"look at and comprehend written matter"},
	"write":      {"mark letters or words on a surface"},
}

// offlineDict is the compiled fallback plugin. It consults the host's
// deinflector so regular inflections still hit the glossary.
type offlineDict struct {
	api HostAPI
}

// NewOfflineDict constructs the offline dictionary over api.
func NewOfflineDict(api HostAPI) Plugin {
	return &offlineDict{api: api}
}

// DisplayName implements Named.
func (d *offlineDict) DisplayName() string { return "Offline Glossary" }

// FindTerm implements Plugin.
func (d *offlineDict) FindTerm(ctx context.Context, word string) (*lookup.TermResult, error) {
	candidates, err := d.api.Deinflect(ctx, word)
	if err != nil || len(candidates) == 0 {
		candidates = []string{word}
	}

	for _, candidate := range candidates {
		defs, ok := offlineEntries[candidate]
		if !ok {
			continue
		}
		return &lookup.TermResult{
			Expression:  candidate,
			Definitions: defs,
			Tags:        []string{"offline"},
		}, nil
	}
	return nil, nil
}
