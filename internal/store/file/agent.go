package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/relaybridge/wayfarer/internal/store"
)

// agentState is the on-disk shape for FileAgentStore: a key->agent map and,
// per agent, the set of users allowed to write files into its shared group
// workspace (e.g. a Telegram group chat).
type agentState struct {
	Agents         map[string]*store.AgentData          `json:"agents"`         // key -> agent
	GroupWriters   map[string]map[string]*store.GroupFileWriter `json:"groupWriters"` // "agentID:groupID" -> userID -> writer
}

// FileAgentStore is a single-JSON-file store.AgentStore, sized for
// standalone deployments where one process owns a handful of agents and
// group-file-writer ACLs rather than a full multi-tenant agent directory.
type FileAgentStore struct {
	path string

	mu    sync.Mutex
	state agentState
}

func NewFileAgentStore(path string) *FileAgentStore {
	s := &FileAgentStore{path: path, state: agentState{
		Agents:       map[string]*store.AgentData{},
		GroupWriters: map[string]map[string]*store.GroupFileWriter{},
	}}
	s.load()
	return s
}

func groupKey(agentID, groupID string) string { return agentID + ":" + groupID }

func (s *FileAgentStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var st agentState
	if err := json.Unmarshal(data, &st); err != nil {
		return
	}
	if st.Agents == nil {
		st.Agents = map[string]*store.AgentData{}
	}
	if st.GroupWriters == nil {
		st.GroupWriters = map[string]map[string]*store.GroupFileWriter{}
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *FileAgentStore) saveLocked() error {
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

// EnsureAgent registers key as an agent, creating a fresh ID if it isn't
// already known. Called at startup for each configured agent profile.
func (s *FileAgentStore) EnsureAgent(key string) (*store.AgentData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.state.Agents[key]; ok {
		return a, nil
	}
	a := &store.AgentData{ID: uuid.New(), Key: key}
	s.state.Agents[key] = a
	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *FileAgentStore) GetByKey(ctx context.Context, key string) (*store.AgentData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.state.Agents[key]
	if !ok {
		return nil, fmt.Errorf("agent: unknown key %q", key)
	}
	return a, nil
}

func (s *FileAgentStore) IsGroupFileWriter(ctx context.Context, agentID, groupID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writers := s.state.GroupWriters[groupKey(agentID, groupID)]
	_, ok := writers[userID]
	return ok, nil
}

func (s *FileAgentStore) AddGroupFileWriter(ctx context.Context, agentID, groupID, userID, displayName, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := groupKey(agentID, groupID)
	writers, ok := s.state.GroupWriters[key]
	if !ok {
		writers = map[string]*store.GroupFileWriter{}
		s.state.GroupWriters[key] = writers
	}
	writers[userID] = &store.GroupFileWriter{UserID: userID, DisplayName: displayName, Username: username}
	return s.saveLocked()
}

func (s *FileAgentStore) ListGroupFileWriters(ctx context.Context, agentID, groupID string) ([]store.GroupFileWriter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writers := s.state.GroupWriters[groupKey(agentID, groupID)]
	out := make([]store.GroupFileWriter, 0, len(writers))
	for _, w := range writers {
		out = append(out, *w)
	}
	return out, nil
}

func (s *FileAgentStore) RemoveGroupFileWriter(ctx context.Context, agentID, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := groupKey(agentID, groupID)
	writers, ok := s.state.GroupWriters[key]
	if !ok {
		return nil
	}
	delete(writers, userID)
	return s.saveLocked()
}
