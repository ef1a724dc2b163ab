// Package cron is the standalone-mode cron dispatcher: job records
// persisted via a pluggable backend (JSON file or embedded SQLite), a
// dispatch loop that sleeps until the soonest next_fire_ms (or a wake
// signal), and retry-with-backoff around the job handler.
package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/relaybridge/wayfarer/internal/store"
)

// RetryConfig controls how many times, and with what backoff, a failed job
// handler invocation is retried before the job's state.last_error sticks.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig matches config.CronConfig's documented defaults
// (3 retries, 2s base, 30s cap).
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}
}

// persister abstracts how the job list is durably stored. Service's
// in-memory scheduling logic (the dispatch loop, wake signaling, retry)
// is identical regardless of which one backs it.
type persister interface {
	load() ([]*store.CronJob, error)
	save(jobs []*store.CronJob) error
}

// Service is a store.CronStore: it persists jobs via a pluggable persister
// and runs a dispatch loop that fires jobs in next_fire_ms order, ties
// broken by insertion order.
type Service struct {
	persist persister

	mu      sync.Mutex
	jobs    []*store.CronJob
	order   map[string]int // insertion index, for tie-breaking same next_fire_ms
	nextSeq int

	retry   RetryConfig
	handler store.CronJobHandler

	wake   chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
	gx     *gronx.Gronx
}

func newService(p persister, retry *RetryConfig) *Service {
	rc := DefaultRetryConfig()
	if retry != nil {
		rc = *retry
	}
	s := &Service{
		persist: p,
		order:   make(map[string]int),
		retry:   rc,
		wake:    make(chan struct{}, 1),
		gx:      gronx.New(),
	}
	s.load()
	return s
}

// NewService creates a Service persisting to a single JSON file (atomic
// write-to-temp-then-rename, same pattern as
// internal/store/file/sessions.go). retry may be nil, in which case
// DefaultRetryConfig is used until SetRetryConfig is called.
func NewService(path string, retry *RetryConfig) *Service {
	return newService(&jsonFilePersister{path: path}, retry)
}

// NewSQLiteService creates a Service persisting to an embedded SQLite
// database at dbPath, for deployments that want queryable cron state
// instead of a flat JSON file. retry may be nil, as in NewService.
func NewSQLiteService(dbPath string, retry *RetryConfig) (*Service, error) {
	p, err := newSQLitePersister(dbPath)
	if err != nil {
		return nil, err
	}
	return newService(p, retry), nil
}

// SetRetryConfig updates the retry policy used for subsequent job failures.
func (s *Service) SetRetryConfig(rc RetryConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retry = rc
}

func (s *Service) load() {
	jobs, err := s.persist.load()
	if err != nil {
		return // unreadable/missing → empty store, matches spec: unparseable → treat as empty, don't delete
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = jobs
	for i, j := range jobs {
		s.order[j.ID] = i
		s.nextSeq = i + 1
	}
}

// saveLocked persists the job list. Caller must hold s.mu.
func (s *Service) saveLocked() error {
	return s.persist.save(s.jobs)
}

// Add validates and persists a new job, computing its initial next_fire_ms.
func (s *Service) Add(ctx context.Context, job *store.CronJob) error {
	nowMs := time.Now().UnixMilli()

	switch job.Schedule.Kind {
	case store.CronKindAt:
		if job.Schedule.After != 0 {
			if job.Schedule.After < 10 {
				return fmt.Errorf("cron: after must be at least 10 seconds")
			}
			job.Schedule.AtMs = nowMs + int64(job.Schedule.After)*1000
		}
		if job.Schedule.AtMs <= nowMs {
			return fmt.Errorf("cron: past-time addition rejected: at is in the past")
		}
		job.State.NextFireMs = job.Schedule.AtMs
	case store.CronKindEvery:
		if job.Schedule.EveryMs <= 0 {
			return fmt.Errorf("cron: every must be positive")
		}
		job.State.NextFireMs = nowMs + job.Schedule.EveryMs
	case store.CronKindExpr:
		if !s.gx.IsValid(job.Schedule.Expr) {
			return fmt.Errorf("cron: invalid cron expression %q", job.Schedule.Expr)
		}
		next, err := nextExprFire(s.gx, job.Schedule.Expr, time.Now())
		if err != nil {
			return fmt.Errorf("cron: compute next fire: %w", err)
		}
		job.State.NextFireMs = next.UnixMilli()
	default:
		return fmt.Errorf("cron: unknown schedule kind %q", job.Schedule.Kind)
	}

	s.mu.Lock()
	if job.ID == "" {
		job.ID = store.GenNewID().String()
	}
	s.jobs = append(s.jobs, job)
	s.order[job.ID] = s.nextSeq
	s.nextSeq++
	err := s.saveLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.signalWake()
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*store.CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, fmt.Errorf("cron: job %q not found", id)
}

func (s *Service) List(ctx context.Context) ([]*store.CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*store.CronJob, len(s.jobs))
	copy(out, s.jobs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].State.NextFireMs != out[j].State.NextFireMs {
			return out[i].State.NextFireMs < out[j].State.NextFireMs
		}
		return s.order[out[i].ID] < s.order[out[j].ID]
	})
	return out, nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, j := range s.jobs {
		if j.ID == id {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			delete(s.order, id)
			return s.saveLocked()
		}
	}
	return fmt.Errorf("cron: job %q not found", id)
}

func (s *Service) SetOnJob(handler store.CronJobHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

func (s *Service) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start launches the dispatch loop: sleep until the soonest next_fire_ms (or
// a wake signal from Add/Remove), fire all due jobs, reschedule or delete
// them, repeat. Matches spec.md §4.8's single-loop dispatcher.
func (s *Service) Start() error {
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.runLoop()
	return nil
}

func (s *Service) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Service) runLoop() {
	defer s.wg.Done()
	for {
		wait := s.nextWait()
		timer := time.NewTimer(wait)
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
		s.fireDue()
	}
}

func (s *Service) nextWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.jobs) == 0 {
		return time.Hour
	}
	soonest := s.jobs[0].State.NextFireMs
	for _, j := range s.jobs[1:] {
		if j.State.NextFireMs < soonest {
			soonest = j.State.NextFireMs
		}
	}
	d := time.Until(time.UnixMilli(soonest))
	if d < 0 {
		return 0
	}
	if d > time.Hour {
		return time.Hour
	}
	return d
}

func (s *Service) fireDue() {
	now := time.Now().UnixMilli()

	s.mu.Lock()
	var due []*store.CronJob
	for _, j := range s.jobs {
		if j.State.NextFireMs <= now {
			due = append(due, j)
		}
	}
	handler := s.handler
	retry := s.retry
	s.mu.Unlock()

	if handler == nil || len(due) == 0 {
		return
	}

	for _, job := range due {
		s.fireOne(job, handler, retry)
	}

	s.mu.Lock()
	s.saveLocked()
	s.mu.Unlock()
}

func (s *Service) fireOne(job *store.CronJob, handler store.CronJobHandler, retry RetryConfig) {
	var lastErr error
	delay := retry.BaseDelay
	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay *= 2
			if delay > retry.MaxDelay {
				delay = retry.MaxDelay
			}
		}
		_, err := handler(job)
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
	}

	s.mu.Lock()
	job.State.FireCount++
	job.State.LastFiredMs = time.Now().UnixMilli()
	if lastErr != nil {
		job.State.LastError = lastErr.Error()
	} else {
		job.State.LastError = ""
	}

	switch job.Schedule.Kind {
	case store.CronKindAt:
		for i, j := range s.jobs {
			if j.ID == job.ID {
				s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
				delete(s.order, job.ID)
				break
			}
		}
	case store.CronKindEvery:
		// No catch-up on oversleep: next fire is strictly now + interval.
		job.State.NextFireMs = time.Now().UnixMilli() + job.Schedule.EveryMs
	case store.CronKindExpr:
		if next, err := nextExprFire(s.gx, job.Schedule.Expr, time.Now()); err == nil {
			job.State.NextFireMs = next.UnixMilli()
		} else {
			job.State.NextFireMs = time.Now().Add(time.Hour).UnixMilli()
		}
	}
	s.mu.Unlock()
}

func nextExprFire(gx *gronx.Gronx, expr string, from time.Time) (time.Time, error) {
	tick, err := gronx.NextTickAfter(expr, from, false)
	if err != nil {
		return time.Time{}, err
	}
	_ = gx
	return tick, nil
}
