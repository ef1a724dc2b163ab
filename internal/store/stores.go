package store

// Stores is the top-level container for storage backends wired at startup.
// Every field is populated by the file-backed adapters in internal/store/file;
// Teams is the only one a deployment can legitimately leave nil (no
// multi-agent teams configured).
type Stores struct {
	Sessions SessionStore
	Cron     CronStore
	Pairing  PairingStore
	Skills   SkillStore
	Agents   AgentStore
	Teams    TeamStore // nil unless multi-agent teams are configured
}
