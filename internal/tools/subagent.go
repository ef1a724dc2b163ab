// Package tools provides the subagent system for spawning child agent instances.
//
// Subagents run in background goroutines with restricted tool access.
// Key constraints on sub-agent delegation:
//   - Depth limit: configurable maxSpawnDepth (default 1)
//   - Max children per parent: configurable (default 5)
//   - Auto-archive after configurable TTL (default 60 min)
//   - Tool deny lists: ALWAYS_DENY + LEAF_DENY at max depth
//   - Results announced back to parent via message bus
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaybridge/wayfarer/internal/agents"
	"github.com/relaybridge/wayfarer/internal/bus"
	"github.com/relaybridge/wayfarer/internal/providers"
	"github.com/relaybridge/wayfarer/internal/store"
	"github.com/relaybridge/wayfarer/internal/tracing"
)

// sortedSafeToolNames returns agents.SAFE_TOOL_NAMES as a sorted slice, for
// the "Allowed: ..." suffix of the unknown-tools error message.
func sortedSafeToolNames() []string {
	names := make([]string, 0, len(agents.SAFE_TOOL_NAMES))
	for n := range agents.SAFE_TOOL_NAMES {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SubagentConfig configures the subagent system.
type SubagentConfig struct {
	MaxConcurrent       int    // max concurrent subagents (default 8)
	MaxSpawnDepth       int    // max nesting depth (default 1)
	MaxChildrenPerAgent int    // max children per parent (default 5)
	ArchiveAfterMinutes int    // auto-archive completed tasks (default 60)
	Model               string // model override for subagents (empty = inherit)
}

// Subagent task status constants.
const (
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
	TaskStatusCancelled = "cancelled"
)

// SubagentTask tracks a running or completed subagent.
type SubagentTask struct {
	ID              string `json:"id"`
	ParentID        string `json:"parentId"`
	Task            string `json:"task"`
	Label           string `json:"label"`
	AgentName       string `json:"agentName,omitempty"` // resolved profile name; "general-purpose" when agent_name was omitted
	Status          string `json:"status"` // "running", "completed", "failed", "cancelled"
	Result          string `json:"result,omitempty"`
	Depth           int    `json:"depth"`
	Model           string `json:"model,omitempty"`           // model override for this subagent
	OriginChannel   string `json:"originChannel,omitempty"`
	OriginChatID    string `json:"originChatId,omitempty"`
	OriginPeerKind  string `json:"originPeerKind,omitempty"`  // "direct" or "group" (for session key building)
	OriginUserID    string `json:"originUserId,omitempty"`    // parent's userID for per-user scoping propagation
	CreatedAt        int64  `json:"createdAt"`
	CompletedAt      int64  `json:"completedAt,omitempty"`
	OriginTraceID    uuid.UUID `json:"-"` // parent trace for announce linking
	OriginRootSpanID uuid.UUID `json:"-"` // parent agent's root span ID
	cancelFunc       context.CancelFunc `json:"-"` // per-task context cancel
	profile          agents.Definition  `json:"-"` // resolved once at spawn time, reused by executeTask
}

// SubagentManager manages the lifecycle of spawned subagents.
type SubagentManager struct {
	mu       sync.RWMutex
	tasks    map[string]*SubagentTask
	config   SubagentConfig
	provider    providers.Provider
	callWrapper *providers.CallWrapper // every subagent LLM call goes through this; nil wraps provider with no secondary
	model       string
	msgBus      *bus.MessageBus
	profiles    *agents.Loader // resolves agent_name → AgentDefinition; nil means only general-purpose is available
	skills      skillsSummaryProvider // optional: renders <available_skills> for named profiles

	// createTools builds a tool registry for subagents; executeTask then narrows
	// it with the profile allow-list and the deny lists.
	createTools   func() *Registry
	announceQueue *AnnounceQueue // optional: batches announces with debounce
}

// NewSubagentManager creates a new subagent manager.
func NewSubagentManager(
	provider providers.Provider,
	model string,
	msgBus *bus.MessageBus,
	createTools func() *Registry,
	cfg SubagentConfig,
) *SubagentManager {
	return &SubagentManager{
		tasks:       make(map[string]*SubagentTask),
		config:      cfg,
		provider:    provider,
		model:       model,
		msgBus:      msgBus,
		createTools: createTools,
	}
}

// SetCallWrapper installs the shared fallback-aware call wrapper. Without
// one, executeTask falls back to calling the configured provider directly.
func (sm *SubagentManager) SetCallWrapper(cw *providers.CallWrapper) {
	sm.callWrapper = cw
}

// SetProfileLoader installs the agent-definition loader used to resolve
// agent_name on spawn. Without one, only the general-purpose profile
// (agent_name omitted) is usable — naming anything else fails the spawn.
func (sm *SubagentManager) SetProfileLoader(l *agents.Loader) {
	sm.profiles = l
}

// SetAnnounceQueue sets the announce queue for batched announce delivery.
// If set, runTask() enqueues announces instead of publishing directly.
func (sm *SubagentManager) SetAnnounceQueue(q *AnnounceQueue) {
	sm.announceQueue = q
}

// CountRunningForParent returns the number of running tasks for a parent.
func (sm *SubagentManager) CountRunningForParent(parentID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	count := 0
	for _, t := range sm.tasks {
		if t.ParentID == parentID && t.Status == TaskStatusRunning {
			count++
		}
	}
	return count
}

// SubagentDenyAlways is the list of tools always denied to subagents.
var SubagentDenyAlways = []string{
	"gateway",
	"agents_list",
	"whatsapp_login",
	"session_status",
	"cron",
	"memory_search",
	"memory_get",
	"sessions_send",
}

// SubagentDenyLeaf is the additional deny list for subagents at max depth.
var SubagentDenyLeaf = []string{
	"sessions_list",
	"sessions_history",
	"sessions_spawn",
	"spawn",
	"subagent",
}

// Spawn creates a new subagent task that runs asynchronously.
// Returns immediately with a status message. The subagent runs in a goroutine.
// modelOverride optionally overrides the LLM model for this subagent (matching TS sessions-spawn-tool.ts).
// agentName, when non-empty, selects a named agent profile (resolved via the
// profile loader, workspace overriding builtin); empty means general-purpose.
func (sm *SubagentManager) Spawn(
	ctx context.Context,
	parentID string,
	depth int,
	task, label, modelOverride, agentName string,
	channel, chatID, peerKind string,
	callback AsyncCallback,
) (string, error) {
	// Resolve profile before taking the lock — pure lookup, no task-slot cost on error.
	var profile agents.Definition
	if agentName == "" {
		profile = agents.GeneralPurpose
	} else if sm.profiles == nil {
		return "", fmt.Errorf("unknown agent profile %q", agentName)
	} else {
		resolved, err := sm.profiles.Resolve(agentName)
		if err != nil {
			return "", err
		}
		profile = resolved
	}

	if unknown := profile.UnknownTools(); len(unknown) > 0 {
		return "", fmt.Errorf("Error: Agent %s references unknown tools: %s. Allowed: %s",
			profile.Name, strings.Join(unknown, ", "), strings.Join(sortedSafeToolNames(), ", "))
	}

	sm.mu.Lock()

	// Check depth limit
	if depth >= sm.config.MaxSpawnDepth {
		sm.mu.Unlock()
		return "", fmt.Errorf("spawn depth limit reached (%d/%d)", depth, sm.config.MaxSpawnDepth)
	}

	// Check concurrent limit
	running := 0
	for _, t := range sm.tasks {
		if t.Status == TaskStatusRunning {
			running++
		}
	}
	if running >= sm.config.MaxConcurrent {
		sm.mu.Unlock()
		return "", fmt.Errorf("max concurrent subagents reached (%d/%d)", running, sm.config.MaxConcurrent)
	}

	// Check per-parent children limit
	childCount := 0
	for _, t := range sm.tasks {
		if t.ParentID == parentID {
			childCount++
		}
	}
	if childCount >= sm.config.MaxChildrenPerAgent {
		sm.mu.Unlock()
		return "", fmt.Errorf("max children per agent reached (%d/%d)", childCount, sm.config.MaxChildrenPerAgent)
	}

	id := generateSubagentID()
	if label == "" {
		label = truncate(task, 50)
	}

	subTask := &SubagentTask{
		ID:               id,
		ParentID:         parentID,
		Task:             task,
		Label:            label,
		AgentName:        profile.Name,
		Status:           "running",
		Depth:            depth + 1,
		Model:            modelOverride,
		OriginChannel:    channel,
		OriginChatID:     chatID,
		OriginPeerKind:   peerKind,
		OriginUserID:     store.UserIDFromContext(ctx),
		OriginTraceID:    tracing.TraceIDFromContext(ctx),
		OriginRootSpanID: tracing.ParentSpanIDFromContext(ctx),
		CreatedAt:        time.Now().UnixMilli(),
		profile:          profile,
	}
	// Create per-task context for real goroutine cancellation
	taskCtx, taskCancel := context.WithCancel(ctx)
	subTask.cancelFunc = taskCancel

	sm.tasks[id] = subTask
	sm.mu.Unlock()

	slog.Info("subagent spawned", "id", id, "parent", parentID, "depth", subTask.Depth, "label", label)

	go sm.runTask(taskCtx, subTask, callback)

	return fmt.Sprintf("Agent task started (id: %s, agent: %s). Use agent_progress to check status.",
		id, subTask.AgentName), nil
}

// RunSync executes a subagent task synchronously, blocking until completion.
func (sm *SubagentManager) RunSync(
	ctx context.Context,
	parentID string,
	depth int,
	task, label string,
	channel, chatID string,
) (string, int, error) {
	sm.mu.Lock()

	if depth >= sm.config.MaxSpawnDepth {
		sm.mu.Unlock()
		return "", 0, fmt.Errorf("spawn depth limit reached (%d/%d)", depth, sm.config.MaxSpawnDepth)
	}

	id := generateSubagentID()
	if label == "" {
		label = truncate(task, 50)
	}

	subTask := &SubagentTask{
		ID:               id,
		ParentID:         parentID,
		Task:             task,
		Label:            label,
		AgentName:        agents.GeneralPurpose.Name,
		Status:           "running",
		Depth:            depth + 1,
		OriginChannel:    channel,
		OriginChatID:     chatID,
		OriginUserID:     store.UserIDFromContext(ctx),
		OriginTraceID:    tracing.TraceIDFromContext(ctx),
		OriginRootSpanID: tracing.ParentSpanIDFromContext(ctx),
		CreatedAt:        time.Now().UnixMilli(),
		profile:          agents.GeneralPurpose,
	}
	sm.tasks[id] = subTask
	sm.mu.Unlock()

	slog.Info("subagent sync started", "id", id, "parent", parentID, "depth", subTask.Depth, "label", label)

	iterations := sm.executeTask(ctx, subTask)

	if subTask.Status == TaskStatusFailed {
		return subTask.Result, iterations, fmt.Errorf("subagent failed: %s", subTask.Result)
	}

	return subTask.Result, iterations, nil
}
