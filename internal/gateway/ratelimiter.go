package gateway

import (
	"sync"
	"time"
)

// maxTrackedKeys caps the number of tracked rate-limit keys to prevent
// memory exhaustion from clients rotating session/user IDs.
const maxTrackedKeys = 4096

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

// RateLimiter bounds requests per key (session key, API user, etc.) to a
// configured requests-per-minute budget, with a small burst allowance on
// top of the steady rate. A zero or negative RPM disables limiting
// entirely — Enabled() reports that so callers can skip wiring it.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	rpm     int
	burst   int
}

// NewRateLimiter creates a limiter allowing rpm requests per minute per key,
// plus burst extra requests absorbed within the same window.
func NewRateLimiter(rpm, burst int) *RateLimiter {
	return &RateLimiter{
		entries: make(map[string]*rateLimitEntry),
		rpm:     rpm,
		burst:   burst,
	}
}

// Enabled reports whether rate limiting is active (rpm > 0).
func (r *RateLimiter) Enabled() bool {
	return r.rpm > 0
}

// Allow returns true if key is within its rate budget for the current
// one-minute window. Always true when the limiter is disabled.
func (r *RateLimiter) Allow(key string) bool {
	if !r.Enabled() {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	window := time.Minute

	if len(r.entries) >= maxTrackedKeys {
		for k, e := range r.entries {
			if now.Sub(e.windowStart) >= window {
				delete(r.entries, k)
			}
		}
		for len(r.entries) >= maxTrackedKeys {
			for k := range r.entries {
				delete(r.entries, k)
				break
			}
		}
	}

	e, ok := r.entries[key]
	if !ok || now.Sub(e.windowStart) >= window {
		r.entries[key] = &rateLimitEntry{windowStart: now, count: 1}
		return true
	}

	e.count++
	return e.count <= r.rpm+r.burst
}
