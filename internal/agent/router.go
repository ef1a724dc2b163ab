package agent

import (
	"context"
	"fmt"
	"sync"
)

// Agent is anything that can run one turn of conversation for a session.
// *Loop is the only implementation; the interface exists so the router
// and its callers (scheduler, HTTP handlers, RPC methods) don't need to
// know about Loop's construction details.
type Agent interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

type agentEntry struct {
	agent Agent
}

// Router is the process-wide agent directory: every RPC method, HTTP
// handler, scheduler run-func, and channel consumer looks up the agent
// to drive a turn through here rather than holding a *Loop directly.
type Router struct {
	mu     sync.RWMutex
	agents map[string]*agentEntry
}

// NewRouter creates an empty Router. Agents are added via Register, either
// at startup or from the config file watcher's reload callback.
func NewRouter() *Router {
	return &Router{
		agents: make(map[string]*agentEntry),
	}
}

// Register adds or replaces an agent under the given key.
func (r *Router) Register(agentKey string, a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agentKey] = &agentEntry{agent: a}
}

// Get returns the agent registered under agentKey.
func (r *Router) Get(agentKey string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.agents[agentKey]
	if !ok {
		return nil, fmt.Errorf("agent not found: %s", agentKey)
	}
	return entry.agent, nil
}

// List returns the keys of every agent currently registered.
func (r *Router) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for k := range r.agents {
		names = append(names, k)
	}
	return names
}

// Invalidate removes an agent from the router; Get returns an error for it
// until it is registered again (e.g. by createAgentLoop). Used by the config
// hot-reload watcher when an agent's definition changes on disk.
func (r *Router) Invalidate(agentKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, agentKey)
}

// InvalidateAll clears the entire agent cache. Used by the config
// hot-reload watcher when shared config (providers, tool policy) changes.
func (r *Router) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[string]*agentEntry)
}
