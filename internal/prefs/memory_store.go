package prefs

import (
	"sync"
	"time"
)

// MemoryStore is a Store backed only by process memory, used in tests.
type MemoryStore struct {
	mu     sync.Mutex
	floats map[string]float64
	times  map[string]time.Time
	lists  map[string][]time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		floats: make(map[string]float64),
		times:  make(map[string]time.Time),
		lists:  make(map[string][]time.Time),
	}
}

func (m *MemoryStore) GetFloat(key string, def float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.floats[key]; ok {
		return v
	}
	return def
}

func (m *MemoryStore) SetFloat(key string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.floats[key] = v
}

func (m *MemoryStore) GetTime(key string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.times[key]
	return t, ok
}

func (m *MemoryStore) SetTime(key string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.times[key] = t
}

func (m *MemoryStore) GetTimes(key string) []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Time, len(m.lists[key]))
	copy(out, m.lists[key])
	return out
}

func (m *MemoryStore) SetTimes(key string, ts []time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]time.Time, len(ts))
	copy(cp, ts)
	m.lists[key] = cp
}

func (m *MemoryStore) Flush() error { return nil }
func (m *MemoryStore) Close() error { return nil }
