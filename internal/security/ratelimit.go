package security

import (
	"sync"
	"time"
)

// RateLimiter enforces a sliding-window request cap per sender identity.
// Entries are pruned lazily on each check and periodically by a janitor.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time

	janitorDone chan struct{}
	janitorOnce sync.Once
}

// DefaultRateWindow is the trailing window applied when none is configured.
const DefaultRateWindow = time.Second

// NewRateLimiter creates a limiter allowing limit requests per sender within
// the trailing window. A non-positive limit disables limiting.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateLimiter{
		windows:     make(map[string][]time.Time),
		limit:       limit,
		window:      window,
		now:         time.Now,
		janitorDone: make(chan struct{}),
	}
}

// Allow records a request from sender and reports whether it is within the
// limit. The recorded timestamp counts against subsequent requests only when
// allowed.
func (rl *RateLimiter) Allow(sender string) bool {
	if rl.limit <= 0 {
		return true
	}

	now := rl.now()
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	times := rl.windows[sender]
	pruned := times[:0]
	for _, ts := range times {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}

	if len(pruned) >= rl.limit {
		rl.windows[sender] = pruned
		return false
	}

	rl.windows[sender] = append(pruned, now)
	return true
}

// StartJanitor begins periodic pruning of idle sender windows. Stop ends it.
func (rl *RateLimiter) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = rl.window
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-rl.janitorDone:
				return
			case <-ticker.C:
				rl.prune()
			}
		}
	}()
}

// Stop halts the janitor. Safe to call even if StartJanitor never ran.
func (rl *RateLimiter) Stop() {
	rl.janitorOnce.Do(func() { close(rl.janitorDone) })
}

// prune drops senders whose every timestamp has aged out of the window.
func (rl *RateLimiter) prune() {
	cutoff := rl.now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for sender, times := range rl.windows {
		kept := times[:0]
		for _, ts := range times {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(rl.windows, sender)
			continue
		}
		rl.windows[sender] = kept
	}
}

// TrackedSenders returns how many sender windows are currently held.
func (rl *RateLimiter) TrackedSenders() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}
