package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }})

	const limit = 5
	window := 60 * time.Second

	for i := 0; i < limit; i++ {
		decision, err := limiter.Allow(context.Background(), "10.0.0.1", limit, window)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("call %d: expected allowed", i+1)
		}
		if decision.Remaining != limit-i-1 {
			t.Fatalf("call %d: remaining = %d, want %d", i+1, decision.Remaining, limit-i-1)
		}
	}

	decision, err := limiter.Allow(context.Background(), "10.0.0.1", limit, window)
	if err != nil {
		t.Fatalf("sixth allow: %v", err)
	}
	if decision.Allowed {
		t.Fatal("sixth call within window: expected denied")
	}
	if decision.Remaining != 0 {
		t.Fatalf("denied remaining = %d, want 0", decision.Remaining)
	}
	if !decision.ResetAt.Equal(now.Add(window)) {
		t.Fatalf("reset at %v, want %v", decision.ResetAt, now.Add(window))
	}

	// Window elapses; the next call starts a fresh count of 1.
	now = now.Add(window + time.Second)
	decision, err = limiter.Allow(context.Background(), "10.0.0.1", limit, window)
	if err != nil {
		t.Fatalf("post-window allow: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("post-window call: expected allowed")
	}
	if decision.Remaining != limit-1 {
		t.Fatalf("post-window remaining = %d, want %d", decision.Remaining, limit-1)
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }})

	for i := 0; i < 3; i++ {
		if _, err := limiter.Allow(context.Background(), "10.0.0.1", 3, time.Minute); err != nil {
			t.Fatalf("fill: %v", err)
		}
	}
	decision, err := limiter.Allow(context.Background(), "10.0.0.2", 3, time.Minute)
	if err != nil {
		t.Fatalf("other key: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("a different client address must have its own budget")
	}
}

func TestMemoryLimiter_WindowEndIsExclusive(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }})

	for i := 0; i < 2; i++ {
		if _, err := limiter.Allow(context.Background(), "10.0.0.1", 1, time.Minute); err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
	}

	// A window [start, start+window) ends at exactly start+window; a call at
	// that instant belongs to the next window.
	now = now.Add(time.Minute)
	decision, err := limiter.Allow(context.Background(), "10.0.0.1", 1, time.Minute)
	if err != nil {
		t.Fatalf("boundary allow: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("call at the exact window end must start a fresh window")
	}
	if decision.Remaining != 0 {
		t.Fatalf("fresh window remaining = %d, want 0", decision.Remaining)
	}
}

func TestMemoryLimiter_ZeroLimitDisables(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryLimiterConfig{})
	decision, err := limiter.Allow(context.Background(), "10.0.0.1", 0, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("limit 0 disables enforcement")
	}
}

func TestMemoryLimiter_ExpiredKeysCollected(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{
		Now:     func() time.Time { return now },
		MaxKeys: 2,
	})

	if _, err := limiter.Allow(context.Background(), "a", 1, time.Second); err != nil {
		t.Fatalf("a: %v", err)
	}
	if _, err := limiter.Allow(context.Background(), "b", 1, time.Second); err != nil {
		t.Fatalf("b: %v", err)
	}

	// Both windows expired; a third key must succeed after gc.
	now = now.Add(2 * time.Second)
	decision, err := limiter.Allow(context.Background(), "c", 1, time.Second)
	if err != nil {
		t.Fatalf("c after gc: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected allowed after gc of expired windows")
	}
}
