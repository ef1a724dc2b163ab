package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/relaybridge/wayfarer/internal/store"
)

// ============================================================
// cron
// ============================================================

// CronTool is the agent-facing front end to a store.CronStore: add/list/
// remove scheduled jobs, ground-truthed against the original CronTool's
// action/after/at interface (after is seconds-from-now, minimum 10; at is
// an RFC3339 absolute time).
type CronTool struct {
	cron store.CronStore
}

func NewCronTool(cronStore store.CronStore) *CronTool {
	return &CronTool{cron: cronStore}
}

func (t *CronTool) Name() string { return "cron" }
func (t *CronTool) Description() string {
	return "Manage scheduled/recurring tasks: add a job to run now+after seconds or at an absolute time, list jobs, or remove one."
}

func (t *CronTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"add", "list", "remove"},
				"description": "add a new job, list existing jobs, or remove a job by id",
			},
			"message": map[string]interface{}{
				"type":        "string",
				"description": "the instruction delivered to the agent when the job fires (required for add)",
			},
			"after": map[string]interface{}{
				"type":        "integer",
				"minimum":     10,
				"description": "fire this many seconds from now (one-shot); mutually exclusive with at",
			},
			"at": map[string]interface{}{
				"type":        "string",
				"description": "fire at this absolute RFC3339 time (one-shot); mutually exclusive with after",
			},
			"every": map[string]interface{}{
				"type":        "integer",
				"description": "fire every this many seconds, recurring; mutually exclusive with after/at",
			},
			"mode": map[string]interface{}{
				"type":        "string",
				"enum":        []string{store.CronModeSession, store.CronModeIsolated},
				"description": "deliver into this conversation (session) or spawn an isolated agent (isolated); defaults to session",
			},
			"id": map[string]interface{}{
				"type":        "string",
				"description": "job id (required for remove)",
			},
		},
		"required": []string{"action"},
	}
}

func (t *CronTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if t.cron == nil {
		return ErrorResult("cron store not available")
	}

	action, _ := args["action"].(string)
	switch action {
	case "add":
		return t.add(ctx, args)
	case "list":
		return t.list(ctx)
	case "remove":
		return t.remove(ctx, args)
	default:
		return ErrorResult("cron: unknown action " + action + ", expected add, list, or remove")
	}
}

func (t *CronTool) add(ctx context.Context, args map[string]interface{}) *Result {
	message, _ := args["message"].(string)
	if message == "" {
		return ErrorResult("cron: message is required")
	}

	after := intArg(args["after"])
	at, hasAt := args["at"].(string)
	every := intArg(args["every"])

	schedule := store.CronSchedule{}
	switch {
	case after > 0:
		if after < 10 {
			return ErrorResult("cron: after must be at least 10 seconds")
		}
		schedule.Kind = store.CronKindAt
		schedule.After = after
	case hasAt && at != "":
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return ErrorResult(fmt.Sprintf("cron: could not parse at as RFC3339: %v", err))
		}
		if !parsed.After(time.Now()) {
			return ErrorResult("cron: at is in the past")
		}
		schedule.Kind = store.CronKindAt
		schedule.AtMs = parsed.UnixMilli()
	case every > 0:
		schedule.Kind = store.CronKindEvery
		schedule.EveryMs = int64(every) * 1000
	default:
		return ErrorResult("cron: one of after, at, or every is required")
	}

	mode, _ := args["mode"].(string)
	if mode == "" {
		mode = store.CronModeSession
	}

	job := &store.CronJob{
		Name:     message,
		AgentID:  resolveAgentIDString(ctx),
		Schedule: schedule,
		Payload: store.CronPayload{
			Message: message,
			Mode:    mode,
			Channel: ToolChannelFromCtx(ctx),
			To:      ToolChatIDFromCtx(ctx),
			Deliver: mode == store.CronModeIsolated,
		},
	}

	if err := t.cron.Add(ctx, job); err != nil {
		return ErrorResult(fmt.Sprintf("cron: %v", err))
	}
	return SilentResult(fmt.Sprintf("Created job %s", job.ID))
}

func (t *CronTool) list(ctx context.Context) *Result {
	jobs, err := t.cron.List(ctx)
	if err != nil {
		return ErrorResult(fmt.Sprintf("cron: %v", err))
	}
	if len(jobs) == 0 {
		return SilentResult("no scheduled jobs")
	}
	out := ""
	for _, j := range jobs {
		out += fmt.Sprintf("%s: %q (%s) next_fire_ms=%d\n", j.ID, j.Payload.Message, j.Schedule.Kind, j.State.NextFireMs)
	}
	return SilentResult(out)
}

func (t *CronTool) remove(ctx context.Context, args map[string]interface{}) *Result {
	id, _ := args["id"].(string)
	if id == "" {
		return ErrorResult("cron: id is required")
	}
	if err := t.cron.Remove(ctx, id); err != nil {
		return ErrorResult(fmt.Sprintf("cron: %v", err))
	}
	return SilentResult(fmt.Sprintf("removed job %s", id))
}

func intArg(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
