package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/relaybridge/wayfarer/internal/bus"
	"github.com/relaybridge/wayfarer/internal/providers"
	"github.com/relaybridge/wayfarer/internal/store"
	"github.com/relaybridge/wayfarer/internal/tracing"
)

// runTask executes the subagent in a goroutine.
func (sm *SubagentManager) runTask(ctx context.Context, task *SubagentTask, callback AsyncCallback) {
	iterations := sm.executeTask(ctx, task)

	// Announce result to parent via bus (matching TS subagent-announce.ts pattern).
	// The announce goes through the parent agent's session so the agent can
	// reformulate the result for the user.
	if sm.msgBus != nil && task.OriginChannel != "" {
		elapsed := time.Since(time.UnixMilli(task.CreatedAt))

		item := AnnounceQueueItem{
			SubagentID: task.ID,
			Label:      task.Label,
			Task:       task.Task,
			Status:     task.Status,
			Result:     task.Result,
			Runtime:    elapsed,
			Iterations: iterations,
		}
		meta := AnnounceMetadata{
			OriginChannel:    task.OriginChannel,
			OriginChatID:     task.OriginChatID,
			OriginPeerKind:   task.OriginPeerKind,
			OriginUserID:     task.OriginUserID,
			ParentAgent:      task.ParentID,
			OriginTraceID:    task.OriginTraceID.String(),
			OriginRootSpanID: task.OriginRootSpanID.String(),
		}

		if sm.announceQueue != nil {
			// Use batched announce queue (matching TS debounce pattern)
			sessionKey := fmt.Sprintf("announce:%s:%s", task.ParentID, task.OriginChatID)
			sm.announceQueue.Enqueue(sessionKey, item, meta)
		} else {
			// Direct publish (no batching)
			remainingActive := sm.CountRunningForParent(task.ParentID)
			announceContent := FormatBatchedAnnounce([]AnnounceQueueItem{item}, remainingActive)

			sm.msgBus.PublishInbound(bus.InboundMessage{
				Channel:  "system",
				SenderID: fmt.Sprintf("subagent:%s", task.ID),
				ChatID:   task.OriginChatID,
				Content:  announceContent,
				UserID:   task.OriginUserID,
				Metadata: map[string]string{
					"origin_channel":      task.OriginChannel,
					"origin_peer_kind":    task.OriginPeerKind,
					"parent_agent":        task.ParentID,
					"subagent_id":         task.ID,
					"subagent_label":      task.Label,
					"origin_trace_id":     task.OriginTraceID.String(),
					"origin_root_span_id": task.OriginRootSpanID.String(),
				},
			})
		}
	}

	// Call completion callback
	if callback != nil {
		result := NewResult(fmt.Sprintf("Subagent '%s' completed in %d iterations.\n\nResult:\n%s",
			task.Label, iterations, task.Result))
		sessionKey := fmt.Sprintf("agent:%s:%s:%s:%s", task.ParentID, task.OriginChannel, task.OriginPeerKind, task.OriginChatID)
		callback(sessionKey, task.ID, result)
	}
}

// chat dispatches one LLM call for a subagent through the shared call
// wrapper when one is installed, falling back to calling the provider
// directly so a manager built without SetCallWrapper still works.
func (sm *SubagentManager) chat(ctx context.Context, task *SubagentTask, req providers.ChatRequest) (*providers.ChatResponse, error) {
	if sm.callWrapper == nil {
		return sm.provider.Chat(ctx, req)
	}
	sessionKey := fmt.Sprintf("agent:%s:%s:%s:%s", task.ParentID, task.OriginChannel, task.OriginPeerKind, task.OriginChatID)
	resp, _, err := sm.callWrapper.Call(ctx, sessionKey, req, false, nil, nil)
	return resp, err
}

// executeTask runs the LLM tool loop for a subagent. Returns iteration count.
func (sm *SubagentManager) executeTask(ctx context.Context, task *SubagentTask) int {
	// Tracing: generate a root span ID for this subagent execution.
	// LLM/tool spans will nest under this root span via parent_span_id.
	// The root span itself links to the parent agent's root span (from ctx).
	subRootSpanID := store.GenNewID()
	taskStart := time.Now().UTC()

	// Use a detached context for tracing so spans are emitted even if parent ctx is cancelled.
	// We copy tracing values but remove the cancellation chain.
	traceCtx := context.Background()
	if collector := tracing.CollectorFromContext(ctx); collector != nil {
		traceCtx = tracing.WithCollector(traceCtx, collector)
		traceCtx = tracing.WithTraceID(traceCtx, tracing.TraceIDFromContext(ctx))
		// Keep original parent_span_id (parent agent's root span) for the subagent root span.
		traceCtx = tracing.WithParentSpanID(traceCtx, tracing.ParentSpanIDFromContext(ctx))
	}

	// subCtx overrides parent_span_id so child spans nest under subRootSpanID.
	// traceCtx retains the original parent_span_id for the root subagent span.
	subTraceCtx := tracing.WithParentSpanID(traceCtx, subRootSpanID)

	var model string
	var finalContent string
	iteration := 0

	defer func() {
		sm.mu.Lock()
		task.CompletedAt = time.Now().UnixMilli()
		sm.mu.Unlock()

		// Always emit root subagent span on exit (uses traceCtx which is never cancelled).
		sm.emitSubagentSpan(traceCtx, subRootSpanID, taskStart, task, model, finalContent)
		slog.Debug("subagent tracing: root span emitted",
			"id", task.ID, "span_id", subRootSpanID,
			"trace_id", tracing.TraceIDFromContext(traceCtx),
			"status", task.Status, "iterations", iteration)

		// Schedule auto-archive
		if sm.config.ArchiveAfterMinutes > 0 {
			go sm.scheduleArchive(task.ID, time.Duration(sm.config.ArchiveAfterMinutes)*time.Minute)
		}
	}()

	if ctx.Err() != nil {
		sm.mu.Lock()
		task.Status = TaskStatusCancelled
		task.Result = "cancelled before execution"
		sm.mu.Unlock()
		return 0
	}

	// Build tools for subagent (no spawn/subagent tools to prevent recursion),
	// then narrow to the resolved profile's allowed_tools before the always/leaf
	// deny lists — a profile can only ever narrow, never widen, tool access.
	toolsReg := sm.createTools()
	sm.applyProfileAllowList(toolsReg, task.profile)
	sm.applyDenyList(toolsReg, task.Depth)

	// The deliver_result sentinel is injected after allow/deny narrowing so a
	// sub-agent can always signal completion regardless of profile restrictions.
	delivered := &deliverResultHandle{}
	toolsReg.Register(newDeliverResultTool(delivered))

	// Determine model (cascading priority matching TS sessions-spawn-tool.ts):
	// 1. Per-task model override (highest)
	// 2. Profile's declared model ("default" means defer to the lower tiers)
	// 3. SubagentConfig.Model (global subagent override)
	// 4. SubagentManager default model (inherited from parent)
	model = sm.model
	if sm.config.Model != "" {
		model = sm.config.Model
	}
	if task.profile.Model != "" && task.profile.Model != "default" {
		model = task.profile.Model
	}
	if task.Model != "" {
		model = task.Model
	}

	// Build subagent system prompt (matching TS buildSubagentSystemPrompt pattern).
	systemPrompt := sm.buildSubagentSystemPrompt(task)

	messages := []providers.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: task.Task},
	}

	// Run LLM iteration loop (similar to agent loop but simplified)
	maxIterations := 20

	for iteration < maxIterations {
		iteration++

		if ctx.Err() != nil {
			sm.mu.Lock()
			task.Status = TaskStatusCancelled
			task.Result = "cancelled during execution"
			sm.mu.Unlock()
			return iteration
		}

		chatReq := providers.ChatRequest{
			Messages: messages,
			Tools:    toolsReg.ProviderDefs(),
			Model:    model,
			Options: map[string]interface{}{
				"max_tokens":  4096,
				"temperature": 0.5,
			},
		}

		llmStart := time.Now().UTC()
		resp, err := sm.chat(ctx, task, chatReq)
		sm.emitLLMSpan(subTraceCtx, llmStart, iteration, model, messages, resp, err)

		if err != nil {
			sm.mu.Lock()
			task.Status = TaskStatusFailed
			task.Result = fmt.Sprintf("LLM error at iteration %d: %v", iteration, err)
			sm.mu.Unlock()
			slog.Warn("subagent LLM error", "id", task.ID, "iteration", iteration, "error", err)
			return iteration
		}

		// No tool calls → done
		if len(resp.ToolCalls) == 0 {
			finalContent = resp.Content
			break
		}

		// Build assistant message
		assistantMsg := providers.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		}
		messages = append(messages, assistantMsg)

		// Execute tools
		for _, tc := range resp.ToolCalls {
			slog.Debug("subagent tool call", "id", task.ID, "tool", tc.Name)

			toolStart := time.Now().UTC()
			result := toolsReg.Execute(ctx, task.ID, tc.Name, tc.Arguments)

			argsJSON, _ := json.Marshal(tc.Arguments)
			sm.emitToolSpan(subTraceCtx, toolStart, tc.Name, tc.ID, string(argsJSON), result.ForLLM, result.IsError)

			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    result.ForLLM,
				ToolCallID: tc.ID,
			})
		}

		// Explicit completion: deliver_result was called somewhere in this
		// batch. Stop even if the model appended other tool calls alongside it.
		if delivered.delivered {
			finalContent = delivered.content
			break
		}
	}

	sm.mu.Lock()
	if finalContent == "" {
		finalContent = "Task completed but no final response was generated."
	}
	task.Status = TaskStatusCompleted
	task.Result = finalContent
	sm.mu.Unlock()

	slog.Info("subagent completed", "id", task.ID, "iterations", iteration)
	return iteration
}
