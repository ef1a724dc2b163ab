package store

import "context"

// Pairing request states.
const (
	PairingStatusPending  = "pending"
	PairingStatusApproved = "approved"
	PairingStatusDenied   = "denied"
)

// PairingRequest is one sender's request for owner approval on a channel.
type PairingRequest struct {
	Code      string `json:"code"`
	SenderID  string `json:"senderId"`
	Channel   string `json:"channel"`
	ChatID    string `json:"chatId"`
	AgentID   string `json:"agentId,omitempty"`
	Status    string `json:"status"`
	CreatedMs int64  `json:"createdMs"`
}

// PairingStore tracks which (senderID, channel) pairs have been approved to
// talk to the gateway, and the pending-approval workflow that gets them there.
type PairingStore interface {
	// IsPaired reports whether senderID is already approved on channel.
	IsPaired(senderID, channel string) bool

	// RequestPairing creates (or returns the existing) pending request for
	// senderID on channel/chatID, returning a short human-readable code the
	// owner can use to approve it.
	RequestPairing(senderID, channel, chatID, agentID string) (string, error)

	// Approve marks a pending request (identified by code) approved.
	Approve(ctx context.Context, code string) (*PairingRequest, error)

	// Deny marks a pending request denied.
	Deny(ctx context.Context, code string) (*PairingRequest, error)

	// ListPending returns all requests awaiting approval.
	ListPending(ctx context.Context) ([]*PairingRequest, error)
}
