package store

import (
	"context"

	"github.com/google/uuid"
)

// Context keys for request-scoped routing and scoping values threaded through
// the agent loop and tool execution. Kept as a small, explicit set rather than
// a generic bag so call sites stay greppable.

type storeContextKey string

const (
	ctxAgentID   storeContextKey = "store_agent_id"
	ctxUserID    storeContextKey = "store_user_id"
	ctxAgentType storeContextKey = "store_agent_type"
	ctxSenderID  storeContextKey = "store_sender_id"
)

// WithAgentID attaches the managed-mode agent UUID to ctx (nil in standalone mode).
func WithAgentID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxAgentID, id)
}

// AgentIDFromContext returns the agent UUID, or uuid.Nil if unset.
func AgentIDFromContext(ctx context.Context) uuid.UUID {
	v, _ := ctx.Value(ctxAgentID).(uuid.UUID)
	return v
}

// WithUserID attaches the external, free-form user ID used for per-user scoping.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserID, userID)
}

// UserIDFromContext returns the scoped user ID, or "" if unset.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxUserID).(string)
	return v
}

// WithAgentType attaches the agent's type/profile name (managed mode) for
// interceptor routing.
func WithAgentType(ctx context.Context, agentType string) context.Context {
	return context.WithValue(ctx, ctxAgentType, agentType)
}

// AgentTypeFromContext returns the agent type, or "" if unset.
func AgentTypeFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxAgentType).(string)
	return v
}

// WithSenderID attaches the original individual sender ID, preserved through
// group-chat fan-in so permission checks see the real sender rather than the
// group chat ID.
func WithSenderID(ctx context.Context, senderID string) context.Context {
	return context.WithValue(ctx, ctxSenderID, senderID)
}

// SenderIDFromContext returns the original sender ID, or "" if unset.
func SenderIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxSenderID).(string)
	return v
}
