package security

import (
	"context"
	"testing"
	"time"

	"github.com/lexide/lexide/internal/message"
	"github.com/lexide/lexide/internal/router"
	"github.com/lexide/lexide/internal/validate"
)

// newRouterWithGuard builds a router with the guard installed and a counting
// terminal handler for the given action.
func newRouterWithGuard(t *testing.T, g *Guard, action string, calls *int) *router.Router {
	t.Helper()
	r := router.New()
	r.Use(g.Middleware())
	if err := r.Register(action, func(context.Context, message.Envelope, *router.Sender) (any, error) {
		*calls++
		return "ok", nil
	}); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestGuard_ValidationBlocksHandler(t *testing.T) {
	v := validate.New()
	if err := v.Register("findTerm", validate.ActionSchema{
		Fields: map[string]validate.Field{
			"word": {Type: validate.TypeString, Required: true},
		},
	}); err != nil {
		t.Fatal(err)
	}

	g := NewGuard(WithValidator(v))
	calls := 0
	r := newRouterWithGuard(t, g, "findTerm", &calls)

	resp := r.Route(context.Background(), message.Envelope{Action: "findTerm", Params: []byte(`{}`)}, "coordinator")
	if resp.OK {
		t.Fatal("invalid params passed the guard")
	}
	if resp.Code != router.CodeInvalidParams {
		t.Errorf("code = %q, want %q", resp.Code, router.CodeInvalidParams)
	}
	if calls != 0 {
		t.Errorf("handler called %d times, want 0", calls)
	}
}

func TestGuard_URLSchemeRejected(t *testing.T) {
	v := validate.New()
	if err := v.Register("fetch", validate.ActionSchema{
		Fields: map[string]validate.Field{
			"url": {Type: validate.TypeURL, Required: true},
		},
	}); err != nil {
		t.Fatal(err)
	}

	g := NewGuard(WithValidator(v))
	calls := 0
	r := newRouterWithGuard(t, g, "fetch", &calls)

	resp := r.Route(context.Background(),
		message.Envelope{Action: "fetch", Params: []byte(`{"url":"javascript:alert(1)"}`)}, "coordinator")
	if resp.OK {
		t.Fatal("javascript: URL passed the guard")
	}
	if calls != 0 {
		t.Errorf("fetch handler invoked %d times, want 0", calls)
	}
}

func TestGuard_SenderVerification(t *testing.T) {
	g := NewGuard(WithAllowedSenders("coordinator", "sandbox"))
	calls := 0
	r := newRouterWithGuard(t, g, "op", &calls)

	resp := r.Route(context.Background(), message.Envelope{Action: "op"}, "coordinator")
	if !resp.OK {
		t.Fatalf("allowed sender rejected: %+v", resp)
	}

	resp = r.Route(context.Background(), message.Envelope{Action: "op"}, "webpage")
	if resp.OK {
		t.Fatal("unknown sender accepted")
	}
	if resp.Code != router.CodeUnauthorized {
		t.Errorf("code = %q, want %q", resp.Code, router.CodeUnauthorized)
	}
	if resp.Error != rejectedMessage {
		t.Errorf("rejection leaked detail: %q", resp.Error)
	}
	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}

func TestGuard_RateLimit(t *testing.T) {
	g := NewGuard(WithRateLimit(2, time.Second))
	defer g.Close()
	calls := 0
	r := newRouterWithGuard(t, g, "op", &calls)

	for i := 0; i < 2; i++ {
		resp := r.Route(context.Background(), message.Envelope{Action: "op"}, "tab-1")
		if !resp.OK {
			t.Fatalf("request %d rejected: %+v", i+1, resp)
		}
	}

	resp := r.Route(context.Background(), message.Envelope{Action: "op"}, "tab-1")
	if resp.OK {
		t.Fatal("third request within window accepted")
	}
	if resp.Code != router.CodeRateLimited {
		t.Errorf("code = %q, want %q", resp.Code, router.CodeRateLimited)
	}
	if calls != 2 {
		t.Errorf("handler called %d times, want 2", calls)
	}

	// A different sender has its own window.
	resp = r.Route(context.Background(), message.Envelope{Action: "op"}, "tab-2")
	if !resp.OK {
		t.Errorf("separate sender rejected: %+v", resp)
	}
}

func TestGuard_RateExemptSender(t *testing.T) {
	g := NewGuard(WithRateLimit(2, time.Second), WithRateExempt("sandbox"))
	defer g.Close()
	calls := 0
	r := newRouterWithGuard(t, g, "op", &calls)

	for i := 0; i < 5; i++ {
		resp := r.Route(context.Background(), message.Envelope{Action: "op"}, "sandbox")
		if !resp.OK {
			t.Fatalf("exempt request %d rejected: %+v", i+1, resp)
		}
	}

	// Non-exempt senders keep their own window.
	for i := 0; i < 2; i++ {
		if resp := r.Route(context.Background(), message.Envelope{Action: "op"}, "tab-1"); !resp.OK {
			t.Fatalf("request %d rejected: %+v", i+1, resp)
		}
	}
	if resp := r.Route(context.Background(), message.Envelope{Action: "op"}, "tab-1"); resp.OK {
		t.Fatal("third request within window accepted for a non-exempt sender")
	}
	if calls != 7 {
		t.Errorf("handler called %d times, want 7", calls)
	}
}

func TestGuard_ValidatedParamsRecorded(t *testing.T) {
	v := validate.New()
	if err := v.Register("op", validate.ActionSchema{
		Fields: map[string]validate.Field{"a": {Type: validate.TypeString}},
	}); err != nil {
		t.Fatal(err)
	}

	g := NewGuard(WithValidator(v))
	r := router.New()
	r.Use(g.Middleware())

	var seen *router.Sender
	if err := r.Register("op", func(_ context.Context, _ message.Envelope, s *router.Sender) (any, error) {
		seen = s
		return nil, nil
	}); err != nil {
		t.Fatal(err)
	}

	params := []byte(`{"a":"x"}`)
	resp := r.Route(context.Background(), message.Envelope{Action: "op", Params: params}, "coordinator")
	if !resp.OK {
		t.Fatalf("route failed: %+v", resp)
	}
	if seen == nil || !seen.Verified {
		t.Fatal("sender not marked verified")
	}
	if string(seen.ValidatedParams) != string(params) {
		t.Errorf("validated params = %s", seen.ValidatedParams)
	}
}
