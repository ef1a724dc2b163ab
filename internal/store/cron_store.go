package store

import "context"

// Cron schedule kinds (spec.md §3 CronJob.schedule variant).
const (
	CronKindAt    = "at"    // one-shot, fires once at AtMs then is deleted
	CronKindEvery = "every" // recurring, fires every EveryMs
	CronKindExpr  = "expr"  // recurring, gronx cron expression (additive to at/every)
)

// Cron delivery modes (spec.md §4.8).
const (
	CronModeSession  = "session"  // inject into an existing conversation
	CronModeIsolated = "isolated" // spawn a short-lived isolated agent session
)

// CronSchedule is the variant schedule attached to a CronJob.
type CronSchedule struct {
	Kind    string `json:"kind"`              // "at", "every", or "expr"
	AtMs    int64  `json:"atMs,omitempty"`    // CronKindAt: absolute fire time
	EveryMs int64  `json:"everyMs,omitempty"` // CronKindEvery: recurring interval
	Expr    string `json:"expr,omitempty"`    // CronKindExpr: gronx cron expression

	// After is a tool-facing convenience for CronKindAt: "fire After seconds
	// from now". The cron tool resolves it to AtMs before the job ever
	// reaches the service; the minimum of 10 seconds is enforced there.
	After int `json:"after,omitempty"`
}

// CronJobState tracks a job's fire history.
type CronJobState struct {
	LastFiredMs int64  `json:"lastFiredMs,omitempty"`
	NextFireMs  int64  `json:"nextFireMs"`
	FireCount   int    `json:"fireCount"`
	LastError   string `json:"lastError,omitempty"`
}

// CronPayload is the task a job runs when it fires.
type CronPayload struct {
	Message      string `json:"message"`
	Mode         string `json:"mode,omitempty"` // CronModeSession (default) or CronModeIsolated
	AgentProfile string `json:"agentProfile,omitempty"`

	Channel string `json:"channel,omitempty"` // delivery channel, e.g. "telegram"
	To      string `json:"to,omitempty"`      // delivery chat ID
	Deliver bool   `json:"deliver,omitempty"` // publish the result to Channel/To when done
}

// CronJob is one scheduled task (spec.md §3 CronJob).
type CronJob struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	AgentID  string       `json:"agentId,omitempty"`
	UserID   string       `json:"userId,omitempty"`
	Payload  CronPayload  `json:"payload"`
	Schedule CronSchedule `json:"schedule"`
	State    CronJobState `json:"state"`
}

// CronJobResult is what a fired job produced, reported back to the store for
// state-tracking (last_error) and optionally delivered to a channel.
type CronJobResult struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// CronJobHandler runs a fired job and returns its result.
type CronJobHandler func(job *CronJob) (*CronJobResult, error)

// CronStore persists and dispatches cron jobs.
type CronStore interface {
	Add(ctx context.Context, job *CronJob) error
	Get(ctx context.Context, id string) (*CronJob, error)
	List(ctx context.Context) ([]*CronJob, error)
	Remove(ctx context.Context, id string) error

	// SetOnJob installs the handler invoked when a job fires. Must be called
	// before Start.
	SetOnJob(handler CronJobHandler)

	Start() error
	Stop()
}
