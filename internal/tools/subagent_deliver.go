package tools

import "context"

// deliverResultHandle is the per-task completion signal for the deliver_result
// sentinel tool. executeTask creates one fresh handle per subagent run and
// checks it after every tool-call batch — distinct from the implicit
// completion path (the LLM simply stopping emitting tool calls).
type deliverResultHandle struct {
	delivered bool
	content   string
}

// deliverResultTool is injected into every spawned sub-agent's registry,
// bypassing the profile allow-list and deny-list narrowing that runs before
// it: a sub-agent can always signal it is done, regardless of what its
// profile otherwise restricts it to.
type deliverResultTool struct {
	handle *deliverResultHandle
}

func newDeliverResultTool(handle *deliverResultHandle) *deliverResultTool {
	return &deliverResultTool{handle: handle}
}

func (t *deliverResultTool) Name() string { return "deliver_result" }
func (t *deliverResultTool) Description() string {
	return "Call this exactly once when your task is complete, with your final deliverable as content. Terminates your run and reports content back to whoever spawned you."
}

func (t *deliverResultTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"content": map[string]interface{}{
				"type":        "string",
				"description": "the final result to report back",
			},
		},
		"required": []string{"content"},
	}
}

func (t *deliverResultTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	content, _ := args["content"].(string)
	t.handle.delivered = true
	t.handle.content = content
	return SilentResult("result delivered")
}
