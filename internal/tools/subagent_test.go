package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/relaybridge/wayfarer/internal/agents"
	"github.com/relaybridge/wayfarer/internal/providers"
)

// stubProvider answers every chat turn with a final, tool-free response so
// a spawned task completes in a single iteration.
type stubProvider struct{}

func (stubProvider) Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	return &providers.ChatResponse{Content: "done", FinishReason: "stop"}, nil
}
func (stubProvider) ChatStream(ctx context.Context, req providers.ChatRequest, onChunk func(providers.StreamChunk)) (*providers.ChatResponse, error) {
	return stubProvider{}.Chat(ctx, req)
}
func (stubProvider) DefaultModel() string { return "stub-model" }
func (stubProvider) Name() string         { return "stub" }

func newTestManager(t *testing.T, loader *agents.Loader) *SubagentManager {
	t.Helper()
	cfg := DefaultSubagentConfig()
	mgr := NewSubagentManager(nil, "", nil, func() *Registry { return NewRegistry() }, cfg)
	mgr.SetProfileLoader(loader)
	return mgr
}

// --- Spawn profile resolution / validation tests ---

// TestSpawn_UnknownAgentNameWithNoLoaderErrors verifies naming a profile
// when no profile loader is installed fails before any task is created.
func TestSpawn_UnknownAgentNameWithNoLoaderErrors(t *testing.T) {
	mgr := NewSubagentManager(nil, "", nil, func() *Registry { return NewRegistry() }, DefaultSubagentConfig())
	_, err := mgr.Spawn(context.Background(), "parent", 0, "do a thing", "", "", "researcher", "cli", "chat1", "direct", nil)
	if err == nil {
		t.Fatal("expected error for unknown agent_name with no profile loader, got nil")
	}
}

// TestSpawn_UnknownAgentNameErrors verifies a named profile that isn't
// defined in any profile directory fails resolution.
func TestSpawn_UnknownAgentNameErrors(t *testing.T) {
	loader := agents.NewLoader("", "")
	mgr := newTestManager(t, loader)
	_, err := mgr.Spawn(context.Background(), "parent", 0, "do a thing", "", "", "researcher", "cli", "chat1", "direct", nil)
	if err == nil {
		t.Fatal("expected error for unknown agent profile, got nil")
	}
}

// TestSpawn_UnknownToolsInProfileRejectsWithExactMessage verifies the
// unknown-tools validation fires before any task/goroutine is created, and
// that the error text matches the required "references unknown tools"
// format with an "Allowed:" suffix.
func TestSpawn_UnknownToolsInProfileRejectsWithExactMessage(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "broken.md", "---\nname: broken\nallowedTools: [read_file, send_photo]\n---\nbody")
	loader := agents.NewLoader(dir, "")
	mgr := newTestManager(t, loader)

	_, err := mgr.Spawn(context.Background(), "parent", 0, "do a thing", "", "", "broken", "cli", "chat1", "direct", nil)
	if err == nil {
		t.Fatal("expected error for profile with unknown tools, got nil")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Agent broken references unknown tools: send_photo") {
		t.Errorf("unexpected error message: %q", msg)
	}
	if !strings.Contains(msg, "Allowed:") {
		t.Errorf("expected an Allowed: suffix listing SAFE_TOOL_NAMES, got: %q", msg)
	}
	if len(mgr.tasks) != 0 {
		t.Errorf("expected no task to be created on validation failure, got %d", len(mgr.tasks))
	}
}

// TestSpawn_SuccessReturnsExactStatusString verifies spawn's returned
// status string matches the required literal format, naming both the
// generated task id and the resolved agent name.
func TestSpawn_SuccessReturnsExactStatusString(t *testing.T) {
	mgr := NewSubagentManager(stubProvider{}, "", nil, func() *Registry { return NewRegistry() }, DefaultSubagentConfig())
	mgr.SetProfileLoader(agents.NewLoader("", ""))

	done := make(chan struct{})
	cb := AsyncCallback(func(sessionKey, toolCallID string, result *Result) { close(done) })

	status, err := mgr.Spawn(context.Background(), "parent", 0, "research X", "", "", "", "cli", "chat1", "direct", cb)
	if err != nil {
		t.Fatalf("Spawn returned error: %v", err)
	}
	if !strings.HasPrefix(status, "Agent task started (id: ") {
		t.Errorf("status = %q, want prefix %q", status, "Agent task started (id: ")
	}
	if !strings.Contains(status, "agent: general-purpose") {
		t.Errorf("status = %q, want to mention agent: general-purpose", status)
	}
	if !strings.HasSuffix(status, "Use agent_progress to check status.") {
		t.Errorf("status = %q, want suffix about agent_progress", status)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("spawned task never completed")
	}
}

// TestSpawn_DepthLimitRejectsBeforeValidatedProfileRuns verifies the depth
// check still applies even for a profile that passes tool validation.
func TestSpawn_DepthLimitRejectsBeforeValidatedProfileRuns(t *testing.T) {
	mgr := newTestManager(t, agents.NewLoader("", ""))
	mgr.config.MaxSpawnDepth = 1

	_, err := mgr.Spawn(context.Background(), "parent", 1, "task", "", "", "", "cli", "chat1", "direct", nil)
	if err == nil {
		t.Fatal("expected depth-limit error, got nil")
	}
	if !strings.Contains(err.Error(), "spawn depth limit reached") {
		t.Errorf("unexpected error: %v", err)
	}
}
