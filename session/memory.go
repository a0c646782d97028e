package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the single-process session backend. State is volatile; a
// restart logs every operator out.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore returns an in-memory session store with the given sliding TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

func (m *MemoryStore) Put(_ context.Context, s Session) error {
	if s.LastActivity.IsZero() {
		s.LastActivity = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ConversationID] = s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, conversationID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[conversationID]
	if !ok {
		return nil, nil
	}
	now := m.now()
	if now.Sub(s.LastActivity) > m.ttl {
		delete(m.sessions, conversationID)
		return nil, nil
	}
	s.LastActivity = now
	m.sessions[conversationID] = s
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, conversationID)
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastActivity) > m.ttl {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	n := 0
	for _, s := range m.sessions {
		if now.Sub(s.LastActivity) <= m.ttl {
			n++
		}
	}
	return n, nil
}

// MemoryFlowStore tracks pending flows in process memory.
type MemoryFlowStore struct {
	mu    sync.RWMutex
	flows map[string]Flow
}

func NewMemoryFlowStore() *MemoryFlowStore {
	return &MemoryFlowStore{flows: make(map[string]Flow)}
}

func (m *MemoryFlowStore) Put(_ context.Context, f Flow) error {
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flows[f.ConversationID] = f
	return nil
}

func (m *MemoryFlowStore) Get(_ context.Context, conversationID string) (*Flow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.flows[conversationID]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (m *MemoryFlowStore) Delete(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flows, conversationID)
	return nil
}
