package store

import "context"

// SkillData is a skill's persisted form, mirroring skills.Skill but
// independent of the loader package so RPC methods don't need to import it.
type SkillData struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Body        string   `json:"body"`
}

// SkillStore exposes skill CRUD for RPC methods (skills_list/skills_get/etc).
// Standalone mode backs this with a thin wrapper over skills.Loader's
// directory of markdown files; managed mode would back it with Postgres.
type SkillStore interface {
	List(ctx context.Context) ([]SkillData, error)
	Get(ctx context.Context, name string) (*SkillData, error)
}
