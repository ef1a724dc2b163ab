package store

import (
	"context"

	"github.com/google/uuid"
)

// GroupFileWriter is a group-chat member granted permission to write files
// into a Telegram-group-scoped agent workspace via the file tools.
type GroupFileWriter struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Username    string `json:"username,omitempty"`
}

// AgentData is the minimal agent identity a channel adapter needs to resolve
// its configured agent key to a stable ID.
type AgentData struct {
	ID  uuid.UUID
	Key string
}

// AgentStore is the narrow slice of agent lookups standalone mode needs:
// resolving an agent key to an ID, and managing which group members may
// write files on a group-scoped agent's behalf. The full DB-backed agent
// CRUD surface (multi-tenant admin plane) is out of scope here.
type AgentStore interface {
	GetByKey(ctx context.Context, key string) (*AgentData, error)

	IsGroupFileWriter(ctx context.Context, agentID, groupID, userID string) (bool, error)
	AddGroupFileWriter(ctx context.Context, agentID, groupID, userID, displayName, username string) error
	ListGroupFileWriters(ctx context.Context, agentID, groupID string) ([]GroupFileWriter, error)
	RemoveGroupFileWriter(ctx context.Context, agentID, groupID, userID string) error
}

// TeamStore is a marker type: the multi-agent "teams" admin plane (shared
// task boards, cross-agent delegation rosters) is out of scope. Channel
// adapters type-assert against it defensively; a nil TeamStore disables
// team-aware behavior without those call sites needing a build tag.
type TeamStore interface {
	teamStoreMarker()
}
