package security

import (
	"testing"
	"time"
)

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	defer rl.Stop()

	current := time.Unix(1000, 0)
	rl.now = func() time.Time { return current }

	if !rl.Allow("s") || !rl.Allow("s") {
		t.Fatal("requests within limit rejected")
	}
	if rl.Allow("s") {
		t.Fatal("request over limit accepted")
	}

	// Advance past the window; old entries age out.
	current = current.Add(1100 * time.Millisecond)
	if !rl.Allow("s") {
		t.Error("request after window slide rejected")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Second)
	defer rl.Stop()

	for i := 0; i < 100; i++ {
		if !rl.Allow("s") {
			t.Fatal("disabled limiter rejected a request")
		}
	}
}

func TestRateLimiter_PruneDropsIdleSenders(t *testing.T) {
	rl := NewRateLimiter(5, time.Second)
	defer rl.Stop()

	current := time.Unix(1000, 0)
	rl.now = func() time.Time { return current }

	rl.Allow("a")
	rl.Allow("b")
	if n := rl.TrackedSenders(); n != 2 {
		t.Fatalf("tracked %d senders, want 2", n)
	}

	current = current.Add(2 * time.Second)
	rl.prune()
	if n := rl.TrackedSenders(); n != 0 {
		t.Errorf("tracked %d senders after prune, want 0", n)
	}
}

func TestRateLimiter_PerSenderIsolation(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	defer rl.Stop()

	if !rl.Allow("a") {
		t.Fatal("first request for a rejected")
	}
	if !rl.Allow("b") {
		t.Error("first request for b rejected after a was limited")
	}
	if rl.Allow("a") {
		t.Error("second request for a accepted")
	}
}
