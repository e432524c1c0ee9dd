package sandbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lexide/lexide/internal/bridge"
	"github.com/lexide/lexide/internal/router"
)

// HostAPI is the only means a plugin has of reaching the outside world. Every
// operation is relayed to the coordinator, which performs the real work; the
// sandbox itself has no network or host access.
type HostAPI interface {
	// Fetch retrieves source or data from an allow-listed location.
	Fetch(ctx context.Context, url string) (string, error)

	// Deinflect returns candidate base forms for an inflected word.
	Deinflect(ctx context.Context, word string) ([]string, error)

	// Locale reports the host's configured locale tag.
	Locale(ctx context.Context) (string, error)
}

// SourceFetcher retrieves plugin source text through the coordinator.
type SourceFetcher interface {
	FetchSource(ctx context.Context, location string) (string, error)
}

// Caller issues correlated calls toward the coordinator context.
type Caller interface {
	Call(ctx context.Context, action string, params any) (router.Response, error)
}

// BridgeHostAPI implements HostAPI over the RPC bridge.
type BridgeHostAPI struct {
	caller Caller
}

var _ Caller = (*bridge.Agent)(nil)

// NewBridgeHostAPI creates the capability surface backed by caller.
func NewBridgeHostAPI(caller Caller) *BridgeHostAPI {
	return &BridgeHostAPI{caller: caller}
}

func (h *BridgeHostAPI) call(ctx context.Context, action string, params, out any) error {
	resp, err := h.caller.Call(ctx, action, params)
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("%s: %s", action, resp.Error)
	}
	if out == nil || len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}

// Fetch implements HostAPI.
func (h *BridgeHostAPI) Fetch(ctx context.Context, url string) (string, error) {
	var body string
	err := h.call(ctx, "fetch", map[string]string{"url": url}, &body)
	return body, err
}

// FetchSource implements SourceFetcher. Source locations may be bundled
// paths, which the data-fetch action's URL schema would reject.
func (h *BridgeHostAPI) FetchSource(ctx context.Context, location string) (string, error) {
	var body string
	err := h.call(ctx, "fetchSource", map[string]string{"location": location}, &body)
	return body, err
}

// Deinflect implements HostAPI.
func (h *BridgeHostAPI) Deinflect(ctx context.Context, word string) ([]string, error) {
	var forms []string
	err := h.call(ctx, "deinflect", map[string]string{"word": word}, &forms)
	return forms, err
}

// Locale implements HostAPI.
func (h *BridgeHostAPI) Locale(ctx context.Context) (string, error) {
	var tag string
	err := h.call(ctx, "locale", nil, &tag)
	return tag, err
}
