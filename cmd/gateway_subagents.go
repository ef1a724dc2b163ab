package cmd

import (
	"log/slog"
	"path/filepath"

	"github.com/relaybridge/wayfarer/internal/agents"
	"github.com/relaybridge/wayfarer/internal/bus"
	"github.com/relaybridge/wayfarer/internal/config"
	"github.com/relaybridge/wayfarer/internal/providers"
	"github.com/relaybridge/wayfarer/internal/sandbox"
	"github.com/relaybridge/wayfarer/internal/tools"
)

// setupSubagents builds the sub-agent manager shared by the spawn/subagent
// tools: a provider (wrapped in the same fallback-aware call wrapper as the
// main loop), a tool factory that copies every tool registered on toolsReg
// at the time it is called (spawn/subagent included; the sub-agent's
// allow-list and deny lists remove them later), and the named agent
// profile loader.
func setupSubagents(
	providerReg *providers.Registry,
	cfg *config.Config,
	msgBus *bus.MessageBus,
	toolsReg *tools.Registry,
	workspace string,
	sandboxMgr sandbox.Manager,
) *tools.SubagentManager {
	_ = sandboxMgr // sandboxed tool variants are already registered on toolsReg by the caller

	sc := cfg.Agents.Defaults.Subagents
	subCfg := tools.DefaultSubagentConfig()
	if sc != nil {
		if sc.MaxConcurrent > 0 {
			subCfg.MaxConcurrent = sc.MaxConcurrent
		}
		if sc.MaxSpawnDepth > 0 {
			subCfg.MaxSpawnDepth = sc.MaxSpawnDepth
		}
		if sc.MaxChildrenPerAgent > 0 {
			subCfg.MaxChildrenPerAgent = sc.MaxChildrenPerAgent
		}
		if sc.ArchiveAfterMinutes > 0 {
			subCfg.ArchiveAfterMinutes = sc.ArchiveAfterMinutes
		}
		subCfg.Model = sc.Model
	}

	primaryName := cfg.Agents.Defaults.Provider
	provider, err := providerReg.Get(primaryName)
	if err != nil {
		names := providerReg.List()
		if len(names) == 0 {
			slog.Warn("subagents disabled: no providers configured")
			return nil
		}
		provider, _ = providerReg.Get(names[0])
	}

	createTools := func() *tools.Registry {
		reg := tools.NewRegistry()
		for _, t := range toolsReg.List() {
			reg.Register(t)
		}
		return reg
	}

	mgr := tools.NewSubagentManager(provider, cfg.Agents.Defaults.Model, msgBus, createTools, subCfg)
	mgr.SetCallWrapper(buildCallWrapper(providerReg, cfg, primaryName, msgBus))

	builtinAgentsDir := config.ExpandHome("~/.wayfarer/agents")
	workspaceAgentsDir := filepath.Join(workspace, "agents")
	mgr.SetProfileLoader(agents.NewLoader(workspaceAgentsDir, builtinAgentsDir))

	return mgr
}
