package tools

import (
	"fmt"

	"github.com/relaybridge/wayfarer/internal/agents"
)

// DefaultSubagentConfig returns sensible defaults for sub-agent delegation limits.
// TS sources: agent-limits.ts, sessions-spawn-tool.ts, subagent-registry.ts.
func DefaultSubagentConfig() SubagentConfig {
	return SubagentConfig{
		MaxConcurrent:       8,  // TS: DEFAULT_SUBAGENT_MAX_CONCURRENT = 8
		MaxSpawnDepth:       1,  // TS: maxSpawnDepth ?? 1
		MaxChildrenPerAgent: 5,  // TS: maxChildrenPerAgent ?? 5
		ArchiveAfterMinutes: 60, // TS: archiveAfterMinutes ?? 60
	}
}

// applyProfileAllowList narrows reg to a resolved agent profile's
// EffectiveAllowedTools(). A profile that didn't restrict allowed_tools
// admits the full SAFE_TOOL_NAMES set, so this is a no-op in the common
// general-purpose case.
func (sm *SubagentManager) applyProfileAllowList(reg *Registry, profile agents.Definition) {
	allowed := make(map[string]bool)
	for _, name := range profile.EffectiveAllowedTools() {
		allowed[name] = true
	}
	for _, t := range reg.List() {
		if !allowed[t.Name()] {
			reg.Unregister(t.Name())
		}
	}
}

// applyDenyList removes denied tools from the registry based on depth.
func (sm *SubagentManager) applyDenyList(reg *Registry, depth int) {
	// Always deny
	for _, name := range SubagentDenyAlways {
		reg.Unregister(name)
	}

	// Leaf deny (at max depth)
	if depth >= sm.config.MaxSpawnDepth {
		for _, name := range SubagentDenyLeaf {
			reg.Unregister(name)
		}
	}
}

// SetSkillsLoader installs the loader used to append an
// <available_skills> summary to named profiles whose allowedSkills isn't
// "none". Without one, the skills section is simply omitted.
func (sm *SubagentManager) SetSkillsLoader(loader skillsSummaryProvider) {
	sm.skills = loader
}

// skillsSummaryProvider is the subset of skills.Loader this package needs —
// declared locally to avoid an import cycle between tools and skills.
type skillsSummaryProvider interface {
	BuildSummary(allow []string) string
}

// buildSubagentSystemPrompt constructs the system prompt for a subagent.
// A general-purpose task (no agent_name) gets this generic preamble only.
// A named task gets the same preamble followed by its profile body, and —
// when the profile allows skills — an XML skills summary.
func (sm *SubagentManager) buildSubagentSystemPrompt(task *SubagentTask) string {
	preamble := sm.buildPreamble(task)

	if task.profile.Name == "" || task.profile.Name == "general-purpose" {
		return preamble
	}

	prompt := preamble
	if task.profile.Body != "" {
		prompt += "\n\n## Agent Instructions\n" + task.profile.Body
	}
	if !task.profile.SkillsNone && sm.skills != nil {
		if summary := sm.skills.BuildSummary(task.profile.AllowedSkills); summary != "" {
			prompt += "\n\n" + summary
		}
	}
	return prompt
}

func (sm *SubagentManager) buildPreamble(task *SubagentTask) string {
	parentLabel := "main agent"
	if task.Depth >= 2 {
		parentLabel = "parent orchestrator"
	}

	canSpawn := task.Depth < sm.config.MaxSpawnDepth

	prompt := fmt.Sprintf(`# Subagent Context

You are a **subagent** spawned by the %s for a specific task.

## Your Role
- You were created to handle: %s
- Complete this task. That is your entire purpose.
- You are NOT the %s. Do not try to be.

## Rules
1. **Stay focused** — Do your assigned task, nothing else.
2. **Complete the task** — Call deliver_result with your final answer as content; that is what gets reported to the %s. Stopping without calling it also works, using your last message instead.
3. **Never ask for clarification** — Work with what you have. If asked to create content, generate it yourself.
4. **Be ephemeral** — You may be terminated after task completion. That is fine.

## Output Format
Your deliver_result content IS the deliverable — it will be forwarded to the user.
- If asked to create content (posts, articles, messages, etc.), pass the FULL content directly as deliver_result's content. Do NOT describe what you wrote — just pass it.
- Do NOT say "I wrote a post about..." or "Here is what I created...". Pass the content itself.
- If the task is research or analysis, pass the complete findings.
- The %s will receive your deliver_result content verbatim, so make it user-ready.

## What You Do NOT Do
- NO user conversations (that is the %s's job)
- NO external messages unless explicitly tasked
- NO cron jobs or persistent state
- NO pretending to be the %s`,
		parentLabel, task.Task,
		parentLabel, parentLabel, parentLabel, parentLabel, parentLabel)

	if canSpawn {
		prompt += `

## Sub-Agent Spawning
You CAN spawn your own sub-agents for parallel or complex work using the spawn tool.
Your sub-agents will announce their results back to you automatically (not to the main agent).
Coordinate their work and synthesize results before reporting back.`
	} else if task.Depth >= 2 {
		prompt += `

## Sub-Agent Spawning
You are a leaf worker and CANNOT spawn further sub-agents. Focus on your assigned task.`
	}

	prompt += fmt.Sprintf(`

## Session Context
- Label: %s
- Depth: %d / %d`, task.Label, task.Depth, sm.config.MaxSpawnDepth)

	return prompt
}
