package file

import (
	"context"

	"github.com/relaybridge/wayfarer/internal/pairing"
	"github.com/relaybridge/wayfarer/internal/store"
)

// FilePairingStore wraps pairing.Service to implement store.PairingStore.
type FilePairingStore struct {
	svc *pairing.Service
}

func NewFilePairingStore(svc *pairing.Service) *FilePairingStore {
	return &FilePairingStore{svc: svc}
}

func (f *FilePairingStore) IsPaired(senderID, channel string) bool { return f.svc.IsPaired(senderID, channel) }
func (f *FilePairingStore) RequestPairing(senderID, channel, chatID, agentID string) (string, error) {
	return f.svc.RequestPairing(senderID, channel, chatID, agentID)
}
func (f *FilePairingStore) Approve(ctx context.Context, code string) (*store.PairingRequest, error) {
	return f.svc.Approve(ctx, code)
}
func (f *FilePairingStore) Deny(ctx context.Context, code string) (*store.PairingRequest, error) {
	return f.svc.Deny(ctx, code)
}
func (f *FilePairingStore) ListPending(ctx context.Context) ([]*store.PairingRequest, error) {
	return f.svc.ListPending(ctx)
}
