package blogapi

import (
	"testing"
	"time"
)

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2, time.Minute)
	defer limiter.Stop()
	ip := "203.0.113.10"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first request to be allowed")
	}
	if !limiter.Allow(ip) {
		t.Fatalf("expected second request to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected third request to be blocked")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	limiter := NewRateLimiter(1, 1, time.Minute)
	defer limiter.Stop()
	now := time.Now()
	limiter.now = func() time.Time { return now }
	ip := "203.0.113.20"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first request to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected second request to be blocked")
	}

	now = now.Add(1100 * time.Millisecond)
	if !limiter.Allow(ip) {
		t.Fatalf("expected request after refill to be allowed")
	}
}

func TestRateLimiterIsPerIP(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1, time.Minute)
	defer limiter.Stop()

	if !limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be allowed")
	}
	if !limiter.Allow("203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after burst")
	}
}

func TestRateLimiterSweepForgetsIdleIPs(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1, time.Minute)
	defer limiter.Stop()
	now := time.Now()
	limiter.now = func() time.Time { return now }

	limiter.Allow("203.0.113.40")
	now = now.Add(30 * time.Second)
	limiter.Allow("203.0.113.41")

	now = now.Add(45 * time.Second)
	limiter.sweep()

	limiter.mu.Lock()
	_, oldKept := limiter.visitors["203.0.113.40"]
	_, newKept := limiter.visitors["203.0.113.41"]
	limiter.mu.Unlock()
	if oldKept {
		t.Errorf("expected idle ip to be forgotten")
	}
	if !newKept {
		t.Errorf("expected recent ip to be kept")
	}

	// a forgotten ip starts with a full bucket
	if !limiter.Allow("203.0.113.40") {
		t.Errorf("expected forgotten ip to be allowed again")
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	limiter := NewRateLimiter(1, 1, time.Minute)
	limiter.Stop()
	limiter.Stop()
}
