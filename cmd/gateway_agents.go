package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/relaybridge/wayfarer/internal/agent"
	"github.com/relaybridge/wayfarer/internal/bootstrap"
	"github.com/relaybridge/wayfarer/internal/bus"
	"github.com/relaybridge/wayfarer/internal/config"
	"github.com/relaybridge/wayfarer/internal/providers"
	"github.com/relaybridge/wayfarer/internal/sandbox"
	"github.com/relaybridge/wayfarer/internal/skills"
	"github.com/relaybridge/wayfarer/internal/store"
	"github.com/relaybridge/wayfarer/internal/tools"
	"github.com/relaybridge/wayfarer/pkg/protocol"
)

// createAgentLoop builds a *agent.Loop for one agent (config.json's agents.list
// entries) and registers it on agentRouter. Agents are a fixed, known set at
// startup, so loops are built eagerly here — same assembly steps as
// bootstrapStandaloneAgent's CLI path, wired to the shared gateway
// bus/tools/sessions instead of a dedicated CLI-only registry.
func createAgentLoop(
	agentID string,
	cfg *config.Config,
	agentRouter *agent.Router,
	providerRegistry *providers.Registry,
	msgBus *bus.MessageBus,
	sessStore store.SessionStore,
	toolsReg *tools.Registry,
	toolPE *tools.PolicyEngine,
	contextFiles []bootstrap.ContextFile,
	skillsLoader *skills.Loader,
	hasMemory bool,
	sandboxMgr sandbox.Manager,
	fileAgentStore store.AgentStore,
	ensureUserFiles agent.EnsureUserFilesFunc,
	contextFileLoader agent.ContextFileLoaderFunc,
) error {
	agentCfg := cfg.ResolveAgent(agentID)

	workspace := config.ExpandHome(agentCfg.Workspace)
	if !filepath.IsAbs(workspace) {
		workspace, _ = filepath.Abs(workspace)
	}
	if err := os.MkdirAll(workspace, 0755); err != nil {
		return fmt.Errorf("agent %s: create workspace: %w", agentID, err)
	}

	provider, err := providerRegistry.Get(agentCfg.Provider)
	if err != nil {
		names := providerRegistry.List()
		if len(names) == 0 {
			return fmt.Errorf("agent %s: no providers configured", agentID)
		}
		provider, _ = providerRegistry.Get(names[0])
		slog.Warn("agent provider not found, using fallback",
			"agent", agentID, "wanted", agentCfg.Provider, "using", names[0])
	}

	callWrapper := buildCallWrapper(providerRegistry, cfg, agentCfg.Provider, msgBus)

	var skillAllowList []string
	if spec, ok := cfg.Agents.List[agentID]; ok {
		skillAllowList = spec.Skills
	}

	sandboxEnabled := sandboxMgr != nil
	sandboxContainerDir := ""
	sandboxWorkspaceAccess := ""
	if sandboxEnabled {
		sbCfg := agentCfg.Sandbox
		if sbCfg == nil {
			sbCfg = cfg.Agents.Defaults.Sandbox
		}
		if sbCfg != nil {
			resolved := sbCfg.ToSandboxConfig()
			sandboxContainerDir = resolved.ContainerWorkdir()
			sandboxWorkspaceAccess = string(resolved.WorkspaceAccess)
		}
	}

	loop := agent.NewLoop(agent.LoopConfig{
		ID:                agentID,
		Provider:          provider,
		CallWrapper:       callWrapper,
		Model:             agentCfg.Model,
		ContextWindow:     agentCfg.ContextWindow,
		MaxIterations:     agentCfg.MaxToolIterations,
		Workspace:         workspace,
		Bus:               msgBus,
		Sessions:          sessStore,
		Tools:             toolsReg,
		ToolPolicy:        toolPE,
		OwnerIDs:          cfg.Gateway.OwnerIDs,
		SkillsLoader:      skillsLoader,
		SkillAllowList:    skillAllowList,
		HasMemory:         hasMemory,
		ContextFiles:      contextFiles,
		EnsureUserFiles:   ensureUserFiles,
		ContextFileLoader: contextFileLoader,
		CompactionCfg:     agentCfg.Compaction,
		ContextPruningCfg: agentCfg.ContextPruning,
		SandboxEnabled:        sandboxEnabled,
		SandboxContainerDir:   sandboxContainerDir,
		SandboxWorkspaceAccess: sandboxWorkspaceAccess,
		OnEvent: func(event agent.AgentEvent) {
			msgBus.Broadcast(bus.Event{
				Name:    protocol.EventAgent,
				Payload: event,
			})
		},
	})

	agentRouter.Register(agentID, loop)
	slog.Info("agent loop created", "agent", agentID, "provider", agentCfg.Provider, "model", agentCfg.Model, "workspace", workspace)
	return nil
}
