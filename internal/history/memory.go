package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests and as a degraded
// fallback when the database cannot be opened.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions []UsageSession
	goals    map[string]Goal
	install  time.Time
}

// NewMemoryStore creates an empty store with the given install date.
func NewMemoryStore(install time.Time) *MemoryStore {
	return &MemoryStore{
		goals:   make(map[string]Goal),
		install: install,
	}
}

func (m *MemoryStore) RecordSession(_ context.Context, s UsageSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *MemoryStore) SessionsBetween(_ context.Context, from, to time.Time) ([]UsageSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []UsageSession
	for _, s := range m.sessions {
		if !s.Start.Before(from) && s.Start.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) AppSessions(_ context.Context, app string, from, to time.Time) ([]UsageSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []UsageSession
	for _, s := range m.sessions {
		if s.App == app && !s.Start.Before(from) && s.Start.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) Goal(_ context.Context, app string) (*Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.goals[app]; ok {
		out := g
		return &out, nil
	}
	return nil, nil
}

func (m *MemoryStore) SetGoal(_ context.Context, g Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals[g.App] = g
	return nil
}

func (m *MemoryStore) InstallDate(_ context.Context) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.install, nil
}

func (m *MemoryStore) Close() error { return nil }
