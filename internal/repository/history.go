package repository

import (
	"context"
	"sort"
	"sync"

	"realty/internal/model"
)

// HistoryStore persists the bounded turn history of each conversation session
type HistoryStore interface {
	// Load returns the turns of a session, empty when the session is unknown
	Load(ctx context.Context, sessionID string) ([]model.Turn, error)
	// Save replaces the turns of a session, keeping only the most recent ones
	Save(ctx context.Context, sessionID string, turns []model.Turn) error
	// Clear drops a session's history
	Clear(ctx context.Context, sessionID string) error
	// Sessions lists the ids of sessions that have history
	Sessions(ctx context.Context) ([]string, error)
}

// MemoryHistoryStore keeps histories in process memory
type MemoryHistoryStore struct {
	mu       sync.RWMutex
	maxTurns int
	sessions map[string][]model.Turn
}

// NewMemoryHistoryStore creates an in-process store capped at maxTurns per session
func NewMemoryHistoryStore(maxTurns int) *MemoryHistoryStore {
	if maxTurns <= 0 {
		maxTurns = model.DefaultMaxTurns
	}
	return &MemoryHistoryStore{maxTurns: maxTurns, sessions: make(map[string][]model.Turn)}
}

func (m *MemoryHistoryStore) Load(ctx context.Context, sessionID string) ([]model.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	turns := m.sessions[sessionID]
	out := make([]model.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *MemoryHistoryStore) Save(ctx context.Context, sessionID string, turns []model.Turn) error {
	trimmed := model.TrimHistory(turns, m.maxTurns)
	stored := make([]model.Turn, len(trimmed))
	copy(stored, trimmed)

	m.mu.Lock()
	m.sessions[sessionID] = stored
	m.mu.Unlock()
	return nil
}

func (m *MemoryHistoryStore) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryHistoryStore) Sessions(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
