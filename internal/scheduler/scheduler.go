// Package scheduler runs agent turns through a small set of named lanes
// (main chat traffic, subagent announces, cron runs), each with its own
// concurrency ceiling, and throttles per-session concurrency adaptively as
// a session's estimated prompt size approaches its model's context window.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/relaybridge/wayfarer/internal/agent"
)

// Lane names.
const (
	LaneMain     = "main"
	LaneSubagent = "subagent"
	LaneCron     = "cron"
)

// RunFunc executes one agent turn. Supplied by the caller (cmd/gateway.go)
// so the scheduler stays decoupled from agent routing/resolution.
type RunFunc func(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error)

// Outcome is delivered on the channel returned by Schedule/ScheduleWithOpts.
type Outcome struct {
	Result *agent.RunResult
	Err    error
}

// Lane configures one named queue's concurrency ceiling.
type Lane struct {
	Name        string
	Concurrency int // max turns running concurrently across all sessions in this lane
}

// DefaultLanes returns the standard lane set: generous concurrency for main
// chat traffic, a tighter ceiling for background subagent announces so they
// can't starve interactive traffic.
func DefaultLanes() []Lane {
	return []Lane{
		{Name: LaneMain, Concurrency: 8},
		{Name: LaneSubagent, Concurrency: 4},
		{Name: LaneCron, Concurrency: 2},
	}
}

// QueueConfig bounds how many turns may wait behind a lane's concurrency gate.
type QueueConfig struct {
	MaxQueueDepth int // per lane; 0 = unbounded
}

// DefaultQueueConfig returns a generous but bounded queue depth.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{MaxQueueDepth: 256}
}

// ScheduleOpts customizes a single Schedule call.
type ScheduleOpts struct {
	// MaxConcurrent bounds how many turns for this SPECIFIC session key may
	// run at once (default 1 — a session processes one turn at a time).
	MaxConcurrent int
}

// TokenEstimateFunc estimates (currentTokens, contextWindow) for a session,
// used to shrink that session's effective concurrency as it nears its
// compaction threshold so concurrent runs don't race summarization.
type TokenEstimateFunc func(sessionKey string) (tokens, contextWindow int)

type activeRun struct {
	sessionKey string
	cancel     context.CancelFunc
}

type laneState struct {
	sem chan struct{} // capacity = lane concurrency
}

// Scheduler dispatches agent turns across lanes with per-session concurrency limits.
type Scheduler struct {
	runFunc RunFunc
	queueCfg QueueConfig

	mu     sync.Mutex
	lanes  map[string]*laneState
	active map[string][]*activeRun // sessionKey -> running turns

	tokenEstimate TokenEstimateFunc

	wg     sync.WaitGroup
	closed bool
}

// NewScheduler creates a Scheduler with the given lanes and queue config,
// dispatching work through runFunc.
func NewScheduler(lanes []Lane, queueCfg QueueConfig, runFunc RunFunc) *Scheduler {
	s := &Scheduler{
		runFunc:  runFunc,
		queueCfg: queueCfg,
		lanes:    make(map[string]*laneState, len(lanes)),
		active:   make(map[string][]*activeRun),
	}
	for _, l := range lanes {
		c := l.Concurrency
		if c <= 0 {
			c = 1
		}
		s.lanes[l.Name] = &laneState{sem: make(chan struct{}, c)}
	}
	return s
}

// SetTokenEstimateFunc installs the adaptive throttle's token estimator.
func (s *Scheduler) SetTokenEstimateFunc(fn TokenEstimateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenEstimate = fn
}

// Schedule runs req through the named lane with the default per-session
// concurrency of 1.
func (s *Scheduler) Schedule(ctx context.Context, lane string, req agent.RunRequest) <-chan Outcome {
	return s.ScheduleWithOpts(ctx, lane, req, ScheduleOpts{MaxConcurrent: 1})
}

// ScheduleWithOpts runs req through the named lane, queuing behind the
// lane's global concurrency gate and the session's own concurrency ceiling
// (shrunk adaptively when the session is near its context window).
func (s *Scheduler) ScheduleWithOpts(ctx context.Context, lane string, req agent.RunRequest, opts ScheduleOpts) <-chan Outcome {
	out := make(chan Outcome, 1)

	s.mu.Lock()
	ls, ok := s.lanes[lane]
	if !ok {
		ls = &laneState{sem: make(chan struct{}, 1)}
		s.lanes[lane] = ls
	}
	if s.closed {
		s.mu.Unlock()
		out <- Outcome{Err: context.Canceled}
		close(out)
		return out
	}
	s.wg.Add(1)
	s.mu.Unlock()

	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	go func() {
		defer s.wg.Done()
		defer close(out)

		// Session-level gate: shrink effective concurrency when near the
		// context window, down to a floor of 1 so a session never fully stalls.
		effective := maxConcurrent
		if s.tokenEstimate != nil {
			tokens, window := s.tokenEstimate(req.SessionKey)
			if window > 0 && tokens > 0 {
				ratio := float64(tokens) / float64(window)
				if ratio > 0.85 && effective > 1 {
					effective = 1
				}
			}
		}

		if !s.acquireSessionSlot(req.SessionKey, effective, ctx) {
			out <- Outcome{Err: context.Canceled}
			return
		}
		defer s.releaseSessionSlot(req.SessionKey)

		select {
		case ls.sem <- struct{}{}:
			defer func() { <-ls.sem }()
		case <-ctx.Done():
			out <- Outcome{Err: ctx.Err()}
			return
		}

		runCtx, cancel := context.WithCancel(ctx)
		run := &activeRun{sessionKey: req.SessionKey, cancel: cancel}
		s.registerRun(req.SessionKey, run)
		defer s.unregisterRun(req.SessionKey, run)

		result, err := s.runFunc(runCtx, req)
		out <- Outcome{Result: result, Err: err}
	}()

	return out
}

// acquireSessionSlot blocks until fewer than limit turns are active for
// sessionKey, or ctx is cancelled.
func (s *Scheduler) acquireSessionSlot(sessionKey string, limit int, ctx context.Context) bool {
	for {
		s.mu.Lock()
		if len(s.active[sessionKey]) < limit {
			s.mu.Unlock()
			return true
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return false
		default:
		}
		// Busy-poll with a tiny yield; session fan-in is low-volume so this
		// is simpler than a per-key condvar and bounded by ctx cancellation.
		select {
		case <-ctx.Done():
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (s *Scheduler) releaseSessionSlot(sessionKey string) {}

func (s *Scheduler) registerRun(sessionKey string, run *activeRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[sessionKey] = append(s.active[sessionKey], run)
}

func (s *Scheduler) unregisterRun(sessionKey string, run *activeRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := s.active[sessionKey]
	for i, r := range runs {
		if r == run {
			s.active[sessionKey] = append(runs[:i], runs[i+1:]...)
			break
		}
	}
	if len(s.active[sessionKey]) == 0 {
		delete(s.active, sessionKey)
	}
}

// CancelSession cancels every active turn for sessionKey. Returns true if
// at least one turn was cancelled.
func (s *Scheduler) CancelSession(sessionKey string) bool {
	s.mu.Lock()
	runs := append([]*activeRun{}, s.active[sessionKey]...)
	s.mu.Unlock()
	for _, r := range runs {
		r.cancel()
	}
	return len(runs) > 0
}

// CancelOneSession cancels the oldest active turn for sessionKey.
func (s *Scheduler) CancelOneSession(sessionKey string) bool {
	s.mu.Lock()
	runs := s.active[sessionKey]
	var target *activeRun
	if len(runs) > 0 {
		target = runs[0]
	}
	s.mu.Unlock()
	if target == nil {
		return false
	}
	target.cancel()
	return true
}

// Stop waits for all in-flight turns to finish. Does not cancel them; callers
// that want immediate shutdown should cancel the context passed to Schedule.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}
