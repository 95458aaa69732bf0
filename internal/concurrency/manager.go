package concurrency

import (
	"sync"
)

// Manager hands out non-blocking per-key locks.
type Manager struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewManager creates an empty lock manager
func NewManager() *Manager {
	return &Manager{held: make(map[string]struct{})}
}

// TryAcquire takes the lock for key without waiting. On success it returns a
// release func that is safe to call more than once.
func (m *Manager) TryAcquire(key string) (release func(), ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.held[key]; busy {
		return nil, false
	}
	m.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, key)
			m.mu.Unlock()
		})
	}, true
}

// Held reports whether key is currently locked.
func (m *Manager) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, busy := m.held[key]
	return busy
}

// Len returns the number of keys currently locked.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.held)
}
