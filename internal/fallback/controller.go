// Package fallback tracks whether the primary LLM provider is healthy and
// decides when calls should be routed to a secondary provider instead. It
// is a process-wide singleton: one Controller per gateway process, mutating
// a small piece of shared state under a mutex held only across the brief
// read/update step, never across the LLM call itself. Persistence follows
// the same write-to-temp-then-rename pattern as internal/cron and
// internal/store/file (see internal/store/file/sessions.go).
package fallback

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// State is the persisted shape of the controller's view of primary-provider
// health. last_primary_probe is a monotonic-clock reading and is therefore
// never persisted: on restart the controller behaves as if the primary was
// never probed, so the first call always tries it.
type State struct {
	ConsecutiveFailures int  `json:"consecutive_failures"`
	FallbackMode        bool `json:"fallback_mode"`
}

func (s State) isDefault() bool {
	return s.ConsecutiveFailures == 0 && !s.FallbackMode
}

// Controller is a process-wide, mutex-guarded FallbackState. Create one per
// gateway process and share it across the agent loop, sub-agent manager,
// and compactor so every LLM call site sees the same view.
type Controller struct {
	path string

	mu    sync.Mutex
	state State
	// lastPrimaryProbe is zero until the first probe attempt; zero means
	// "probe interval has elapsed" so the very first call always tries
	// primary regardless of persisted fallback_mode.
	lastPrimaryProbe time.Time
}

// NewController loads persisted state from path (if any) and returns a
// ready Controller. A missing or unparseable file is treated as default
// state, matching cron's "unparseable → empty" convention.
func NewController(path string) *Controller {
	c := &Controller{path: path}
	c.load()
	return c
}

func (c *Controller) load() {
	if c.path == "" {
		return
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return
	}
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// saveLocked persists state only when it differs from default; an absent
// file already means default, so there's nothing to write in that case.
// Caller must hold c.mu.
func (c *Controller) saveLocked() error {
	if c.path == "" {
		return nil
	}
	if c.state.isDefault() {
		_ = os.Remove(c.path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.state, "", "  ")
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

// Snapshot returns the current state and whether the primary probe interval
// has elapsed (i.e. the call wrapper should attempt primary this call even
// if fallback_mode is true).
func (c *Controller) Snapshot(probeInterval time.Duration) (state State, shouldProbePrimary bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.FallbackMode {
		return c.state, true
	}
	if c.lastPrimaryProbe.IsZero() || time.Since(c.lastPrimaryProbe) >= probeInterval {
		return c.state, true
	}
	return c.state, false
}

// MarkPrimaryProbed records that the primary was just attempted, resetting
// the probe-interval clock regardless of outcome.
func (c *Controller) MarkPrimaryProbed() {
	c.mu.Lock()
	c.lastPrimaryProbe = time.Now()
	c.mu.Unlock()
}

// RecordPrimarySuccess resets consecutive_failures and clears fallback_mode.
// Returns true if the controller was in fallback mode before this call, so
// the caller knows to emit a "primary restored" notification.
func (c *Controller) RecordPrimarySuccess() (wasInFallback bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wasInFallback = c.state.FallbackMode
	c.state.ConsecutiveFailures = 0
	c.state.FallbackMode = false
	_ = c.saveLocked()
	return wasInFallback
}

// RecordPrimaryFailure increments consecutive_failures and, if it reaches
// threshold, sets fallback_mode. Returns true exactly on the call that
// crosses the threshold (not on every call afterward while already in
// fallback mode), so the caller emits the "entered fallback" notification
// only once per transition.
func (c *Controller) RecordPrimaryFailure(threshold int) (crossedThreshold bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ConsecutiveFailures++
	if threshold > 0 && !c.state.FallbackMode && c.state.ConsecutiveFailures >= threshold {
		c.state.FallbackMode = true
		crossedThreshold = true
	}
	_ = c.saveLocked()
	return crossedThreshold
}

// InFallbackMode reports the current mode without mutating probe state.
func (c *Controller) InFallbackMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.FallbackMode
}
