package tools

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/time/rate"

	"github.com/relaybridge/wayfarer/internal/providers"
)

// Tool is the minimal contract every registered tool satisfies. Most tools
// implement additional optional interfaces below (ApprovalAware,
// PathAllowable, ...) that the registry or the agent loop type-assert for.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// ApprovalAware is implemented by tools that gate execution behind an
// approval manager (currently only exec).
type ApprovalAware interface {
	SetApprovalManager(mgr *ExecApprovalManager, agentKey string)
}

// PathAllowable is implemented by filesystem tools that accept extra
// allow/deny path prefixes beyond the workspace boundary.
type PathAllowable interface {
	AllowPaths(prefixes ...string)
	DenyPaths(prefixes ...string)
}

// AsyncCallback delivers the result of a tool call that started
// synchronously but completed after the agent turn returned (e.g. a spawned
// subagent). sessionKey identifies which conversation to resume.
type AsyncCallback func(sessionKey, toolCallID string, result *Result)

// Registry holds the set of tools available to an agent loop, along with
// cross-cutting policies (rate limiting, credential scrubbing) applied to
// every call.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool

	limiter  *ToolRateLimiter
	scrub    bool
	execDone int64
}

// NewRegistry creates an empty Registry with credential scrubbing on by
// default, matching the teacher's documented "enabled unless explicitly
// disabled" behavior.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool), scrub: true}
}

// Register adds or replaces a tool under its own Name().
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Unregister removes a tool by name, if present.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// List returns every registered tool, sorted by name, for building provider
// tool schemas and for policy filtering.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// SetRateLimiter installs a per-session call limiter. Pass nil to disable.
func (r *Registry) SetRateLimiter(l *ToolRateLimiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiter = l
}

// SetScrubbing toggles credential scrubbing of tool output before it's
// handed back to the LLM. Enabled by default.
func (r *Registry) SetScrubbing(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrub = enabled
}

// Execute runs the named tool, applying the rate limiter and credential
// scrubbing around the call. sessionKey scopes the rate limiter.
func (r *Registry) Execute(ctx context.Context, sessionKey, name string, args map[string]interface{}) *Result {
	r.mu.RLock()
	t, ok := r.tools[name]
	limiter := r.limiter
	scrub := r.scrub
	r.mu.RUnlock()

	if !ok {
		return ErrorResult("unknown tool: " + name)
	}

	if limiter != nil && !limiter.Allow(sessionKey) {
		return ErrorResult("tool call rate limit exceeded for this session, try again later")
	}

	result := t.Execute(ctx, args)
	if scrub && result != nil && !result.IsError {
		result.ForLLM = ScrubCredentials(result.ForLLM)
	}
	return result
}

// ProviderDefs renders every registered tool as a provider.ToolDefinition,
// sorted by name, for attaching to a ChatRequest.Tools.
func (r *Registry) ProviderDefs() []providers.ToolDefinition {
	tools := r.List()
	defs := make([]providers.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// ExecuteWithContext runs the named tool the same way Execute does, but
// first injects the routing fields (channel, chatID, peerKind) and, when
// non-nil, an AsyncCallback into ctx so context-aware tools (spawn,
// subagent, sessions_send, ...) can read them without threading extra
// parameters through every call site. asyncCB lets a tool whose Result
// comes back after the turn has returned (a spawned subagent) resume
// sessionKey's conversation once it does.
func (r *Registry) ExecuteWithContext(ctx context.Context, name string, args map[string]interface{}, channel, chatID, peerKind, sessionKey string, asyncCB AsyncCallback) *Result {
	ctx = WithToolChannel(ctx, channel)
	ctx = WithToolChatID(ctx, chatID)
	ctx = WithToolPeerKind(ctx, peerKind)
	if asyncCB != nil {
		ctx = WithToolAsyncCB(ctx, asyncCB)
	}
	return r.Execute(ctx, sessionKey, name, args)
}

// ToolRateLimiter enforces a per-session hourly call budget using a token
// bucket per key, refilled continuously rather than reset on the hour.
type ToolRateLimiter struct {
	perHour int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewToolRateLimiter creates a limiter allowing perHour calls per session,
// with a burst equal to perHour so a session isn't throttled mid-burst of
// legitimate rapid-fire tool use.
func NewToolRateLimiter(perHour int) *ToolRateLimiter {
	return &ToolRateLimiter{perHour: perHour, limiters: make(map[string]*rate.Limiter)}
}

// Allow reports whether key (typically a session key) may make another
// tool call right now, consuming from its budget if so.
func (l *ToolRateLimiter) Allow(key string) bool {
	if l.perHour <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(l.perHour)/3600.0), l.perHour)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
