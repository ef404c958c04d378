package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Manager is the in-memory session store. Sessions untouched for longer
// than ttl are invisible to Get and removed by PurgeExpired.
type Manager struct {
	sessions map[int64][]byte
	touched  map[int64]time.Time
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
}

// NewManager creates a new in-memory session store
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[int64][]byte),
		touched:  make(map[int64]time.Time),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns a copy of the stored session, so callers never share state
// with the store.
func (m *Manager) Get(ctx context.Context, userID int64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.sessions[userID]
	if !ok || m.expired(userID) {
		return nil, nil
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}

func (m *Manager) Save(ctx context.Context, s *Session) error {
	now := m.now()
	s.UpdatedAt = now
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = data
	m.touched[s.UserID] = now
	return nil
}

func (m *Manager) Clear(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	delete(m.touched, userID)
	return nil
}

// PurgeExpired drops sessions idle for longer than the ttl and returns how
// many were dropped.
func (m *Manager) PurgeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for userID := range m.sessions {
		if m.expired(userID) {
			delete(m.sessions, userID)
			delete(m.touched, userID)
			purged++
		}
	}
	return purged
}

// Len returns the number of stored sessions, expired ones included.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// expired must be called with mu held.
func (m *Manager) expired(userID int64) bool {
	if m.ttl <= 0 {
		return false
	}
	return m.now().Sub(m.touched[userID]) > m.ttl
}
