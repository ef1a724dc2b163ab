package tools

import (
	"context"
	"fmt"
)

// SpawnTool exposes SubagentManager.Spawn as an LLM tool: it starts a
// background sub-agent and returns immediately with a status string, per
// the spawn/agent_progress/dismiss tool family.
type SpawnTool struct {
	mgr      *SubagentManager
	agentKey string // the owning agent's key, recorded as the spawned task's parentID
	depth    int    // the owning agent's nesting depth (0 for a top-level agent)
}

// NewSpawnTool builds a spawn tool bound to mgr, attributing spawned tasks
// to agentKey at the given depth.
func NewSpawnTool(mgr *SubagentManager, agentKey string, depth int) *SpawnTool {
	return &SpawnTool{mgr: mgr, agentKey: agentKey, depth: depth}
}

func (t *SpawnTool) Name() string { return "spawn" }

func (t *SpawnTool) Description() string {
	return "Start a background sub-agent to work on a task in parallel. Returns immediately; " +
		"use agent_progress to check on it and dismiss to clean it up once it's terminal."
}

func (t *SpawnTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task": map[string]interface{}{
				"type":        "string",
				"description": "The task for the sub-agent to complete.",
			},
			"agent_name": map[string]interface{}{
				"type":        "string",
				"description": "Name of a named agent profile to use. Omit for a general-purpose sub-agent.",
			},
			"model": map[string]interface{}{
				"type":        "string",
				"description": "Optional model override for this sub-agent.",
			},
			"label": map[string]interface{}{
				"type":        "string",
				"description": "Optional short label identifying this task in progress/announce output.",
			},
		},
		"required": []string{"task"},
	}
}

func (t *SpawnTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	task, _ := args["task"].(string)
	if task == "" {
		return ErrorResult("task is required")
	}
	agentName, _ := args["agent_name"].(string)
	model, _ := args["model"].(string)
	label, _ := args["label"].(string)

	channel := ToolChannelFromCtx(ctx)
	chatID := ToolChatIDFromCtx(ctx)
	peerKind := ToolPeerKindFromCtx(ctx)
	cb := ToolAsyncCBFromCtx(ctx)

	status, err := t.mgr.Spawn(ctx, t.agentKey, t.depth, task, label, model, agentName, channel, chatID, peerKind, cb)
	if err != nil {
		return ErrorResult(err.Error())
	}
	return AsyncResult(status)
}

// SubagentTool exposes SubagentManager.RunSync as an LLM tool: it runs a
// sub-agent to completion and returns its final answer directly, for
// callers that want a synchronous result rather than a background task.
type SubagentTool struct {
	mgr      *SubagentManager
	agentKey string
	depth    int
}

// NewSubagentTool builds a synchronous sub-agent tool bound to mgr.
func NewSubagentTool(mgr *SubagentManager, agentKey string, depth int) *SubagentTool {
	return &SubagentTool{mgr: mgr, agentKey: agentKey, depth: depth}
}

func (t *SubagentTool) Name() string { return "subagent" }

func (t *SubagentTool) Description() string {
	return "Run a sub-agent synchronously and wait for its final answer. Blocks until the sub-agent finishes."
}

func (t *SubagentTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task": map[string]interface{}{
				"type":        "string",
				"description": "The task for the sub-agent to complete.",
			},
			"label": map[string]interface{}{
				"type":        "string",
				"description": "Optional short label for this task.",
			},
		},
		"required": []string{"task"},
	}
}

func (t *SubagentTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	task, _ := args["task"].(string)
	if task == "" {
		return ErrorResult("task is required")
	}
	label, _ := args["label"].(string)
	channel := ToolChannelFromCtx(ctx)
	chatID := ToolChatIDFromCtx(ctx)

	result, iterations, err := t.mgr.RunSync(ctx, t.agentKey, t.depth, task, label, channel, chatID)
	if err != nil {
		return ErrorResult(err.Error())
	}
	return NewResult(fmt.Sprintf("%s\n\n(%d iterations)", result, iterations))
}
