package state

import "sync"

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewMemoryStore returns a map-backed Store. Sessions live until the process exits.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[int64]Session)}
}

func (m *memoryStore) Get(chatID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[chatID]; ok {
		return s.clone()
	}
	return Session{State: StateIdle}
}

func (m *memoryStore) Upsert(chatID int64, fn func(*Session)) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	if !ok {
		s = Session{State: StateIdle}
	}
	s = s.clone()
	fn(&s)
	m.sessions[chatID] = s
	return s.clone()
}

func (m *memoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *memoryStore) Close() {}
