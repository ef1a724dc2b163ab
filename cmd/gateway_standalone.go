package cmd

import (
	"path/filepath"

	"github.com/relaybridge/wayfarer/internal/agent"
	"github.com/relaybridge/wayfarer/internal/config"
	"github.com/relaybridge/wayfarer/internal/store"
	"github.com/relaybridge/wayfarer/internal/store/file"
	"github.com/relaybridge/wayfarer/internal/tools"
)

// wireStandaloneExtras builds the agent directory used by tools_invoke
// context injection in a single-tenant deployment. ensureUserFiles and
// contextFileLoader stay nil here — both are managed-mode hooks (per-user
// file seeding and dynamic per-request context loading keyed by a DB agent
// UUID) that standalone mode has no tenant directory to drive.
func wireStandaloneExtras(cfg *config.Config, toolsReg *tools.Registry, dataDir, workspace string) (
	fileAgentStore store.AgentStore,
	ensureUserFiles agent.EnsureUserFilesFunc,
	contextFileLoader agent.ContextFileLoaderFunc,
	cleanup func(),
) {
	agentStorePath := filepath.Join(dataDir, "agents.json")
	fas := file.NewFileAgentStore(agentStorePath)
	fileAgentStore = fas
	return fileAgentStore, nil, nil, nil
}
