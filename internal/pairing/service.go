// Package pairing gates a channel sender behind owner approval before the
// gateway will respond to them, persisting the approved set to a single
// JSON file (same atomic write pattern as internal/cron).
package pairing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/relaybridge/wayfarer/internal/store"
)

type fileState struct {
	Approved map[string]bool             `json:"approved"` // "channel:senderID" -> true
	Pending  map[string]*store.PairingRequest `json:"pending"`  // code -> request
}

// Service is a file-backed store.PairingStore.
type Service struct {
	path string

	mu    sync.Mutex
	state fileState
}

// NewService creates a Service persisting to path.
func NewService(path string) *Service {
	s := &Service{path: path, state: fileState{Approved: map[string]bool{}, Pending: map[string]*store.PairingRequest{}}}
	s.load()
	return s
}

func pairKey(senderID, channel string) string {
	return channel + ":" + senderID
}

func (s *Service) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return
	}
	if st.Approved == nil {
		st.Approved = map[string]bool{}
	}
	if st.Pending == nil {
		st.Pending = map[string]*store.PairingRequest{}
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Service) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Service) IsPaired(senderID, channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Approved[pairKey(senderID, channel)]
}

func (s *Service) RequestPairing(senderID, channel, chatID, agentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, req := range s.state.Pending {
		if req.SenderID == senderID && req.Channel == channel && req.Status == store.PairingStatusPending {
			return req.Code, nil
		}
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("pairing: generate code: %w", err)
	}
	s.state.Pending[code] = &store.PairingRequest{
		Code:      code,
		SenderID:  senderID,
		Channel:   channel,
		ChatID:    chatID,
		AgentID:   agentID,
		Status:    store.PairingStatusPending,
		CreatedMs: time.Now().UnixMilli(),
	}
	if err := s.saveLocked(); err != nil {
		return "", err
	}
	return code, nil
}

func (s *Service) Approve(ctx context.Context, code string) (*store.PairingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.state.Pending[code]
	if !ok {
		return nil, fmt.Errorf("pairing: unknown code %q", code)
	}
	req.Status = store.PairingStatusApproved
	s.state.Approved[pairKey(req.SenderID, req.Channel)] = true
	delete(s.state.Pending, code)
	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) Deny(ctx context.Context, code string) (*store.PairingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.state.Pending[code]
	if !ok {
		return nil, fmt.Errorf("pairing: unknown code %q", code)
	}
	req.Status = store.PairingStatusDenied
	delete(s.state.Pending, code)
	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) ListPending(ctx context.Context) ([]*store.PairingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*store.PairingRequest, 0, len(s.state.Pending))
	for _, req := range s.state.Pending {
		out = append(out, req)
	}
	return out, nil
}

func generateCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
