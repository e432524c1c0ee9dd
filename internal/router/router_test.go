package router

import (
	"context"
	"errors"
	"testing"

	"github.com/lexide/lexide/internal/message"
)

func env(action string) message.Envelope {
	return message.Envelope{Action: action}
}

func TestRouter_RegisterAndRoute(t *testing.T) {
	r := New()

	if err := r.Register("echo", func(_ context.Context, env message.Envelope, _ *Sender) (any, error) {
		return map[string]string{"action": env.Action}, nil
	}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	resp := r.Route(context.Background(), env("echo"), "coordinator")
	if !resp.OK {
		t.Fatalf("Route() failed: %+v", resp)
	}

	var result map[string]string
	if err := resp.DecodeResult(&result); err != nil {
		t.Fatal(err)
	}
	if result["action"] != "echo" {
		t.Errorf("result = %v", result)
	}
}

func TestRouter_UnknownActionGeneric(t *testing.T) {
	r := New() // fail-on-unknown disabled

	resp := r.Route(context.Background(), env("nope"), "coordinator")
	if resp.OK {
		t.Fatal("expected failure response for unknown action")
	}
	if resp.Code != CodeNoHandler {
		t.Errorf("code = %q, want %q", resp.Code, CodeNoHandler)
	}
	if resp.Error != "no handler" {
		t.Errorf("error = %q, want generic message", resp.Error)
	}
}

func TestRouter_UnknownActionStructuredError(t *testing.T) {
	r := New(WithFailOnUnknown(true))

	resp := r.Route(context.Background(), env("nope"), "coordinator")
	if resp.OK || resp.Code != CodeNoHandler {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Error == "no handler" {
		t.Error("expected detailed error with fail-on-unknown enabled")
	}
}

func TestRouter_HandlerErrorConverted(t *testing.T) {
	r := New()

	if err := r.Register("fail", func(context.Context, message.Envelope, *Sender) (any, error) {
		return nil, errors.New("internal detail that must not leak")
	}); err != nil {
		t.Fatal(err)
	}

	resp := r.Route(context.Background(), env("fail"), "coordinator")
	if resp.OK {
		t.Fatal("expected failure response")
	}
	if resp.Code != CodeInternal {
		t.Errorf("code = %q, want %q", resp.Code, CodeInternal)
	}
	if resp.Error != "request failed" {
		t.Errorf("error leaked internal detail: %q", resp.Error)
	}
}

func TestRouter_HandlerPanicConverted(t *testing.T) {
	r := New()

	if err := r.Register("panic", func(context.Context, message.Envelope, *Sender) (any, error) {
		panic("boom")
	}); err != nil {
		t.Fatal(err)
	}

	resp := r.Route(context.Background(), env("panic"), "coordinator")
	if resp.OK || resp.Code != CodeInternal {
		t.Fatalf("response = %+v", resp)
	}
}

func TestRouter_MiddlewareOrderAndShortCircuit(t *testing.T) {
	r := New()

	var order []string
	r.Use(func(ctx context.Context, _ message.Envelope, _ *Sender, next Next) Response {
		order = append(order, "outer")
		return next(ctx)
	})
	r.Use(func(ctx context.Context, _ message.Envelope, _ *Sender, next Next) Response {
		order = append(order, "inner")
		return next(ctx)
	})

	handlerCalls := 0
	if err := r.Register("go", func(context.Context, message.Envelope, *Sender) (any, error) {
		handlerCalls++
		return nil, nil
	}); err != nil {
		t.Fatal(err)
	}

	resp := r.Route(context.Background(), env("go"), "coordinator")
	if !resp.OK {
		t.Fatalf("Route() failed: %+v", resp)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("middleware order = %v", order)
	}
	if handlerCalls != 1 {
		t.Errorf("handler called %d times", handlerCalls)
	}

	// Short-circuiting middleware blocks the handler.
	blocked := New()
	blocked.Use(func(context.Context, message.Envelope, *Sender, Next) Response {
		return Failure(CodeUnauthorized, "request failed")
	})
	blockedCalls := 0
	if err := blocked.Register("go", func(context.Context, message.Envelope, *Sender) (any, error) {
		blockedCalls++
		return nil, nil
	}); err != nil {
		t.Fatal(err)
	}

	resp = blocked.Route(context.Background(), env("go"), "coordinator")
	if resp.OK || resp.Code != CodeUnauthorized {
		t.Fatalf("response = %+v", resp)
	}
	if blockedCalls != 0 {
		t.Errorf("handler called %d times despite short-circuit", blockedCalls)
	}
}

func TestRouter_DuplicateRegistration(t *testing.T) {
	r := New()
	h := func(context.Context, message.Envelope, *Sender) (any, error) { return nil, nil }

	if err := r.Register("a", h); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("a", h); !errors.Is(err, ErrActionRegistered) {
		t.Errorf("got %v, want ErrActionRegistered", err)
	}

	r.Unregister("a")
	if err := r.Register("a", h); err != nil {
		t.Errorf("re-registration after Unregister failed: %v", err)
	}
}

func TestRouter_EmptyAction(t *testing.T) {
	r := New()

	resp := r.Route(context.Background(), message.Envelope{}, "coordinator")
	if resp.OK {
		t.Fatal("expected failure for empty action")
	}
	if resp.Code != CodeInvalidParams {
		t.Errorf("code = %q, want %q", resp.Code, CodeInvalidParams)
	}
}
