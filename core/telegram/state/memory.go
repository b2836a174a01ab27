package state

import (
	"sync"
	"time"
)

type entry[S any] struct {
	value   S
	touched time.Time
}

type memoryManager[S any] struct {
	mu       sync.RWMutex
	sessions map[int64]entry[S]
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryManager constructs an in-memory Manager. Sessions are lost on restart.
func NewMemoryManager[S any](opts Options) Manager[S] {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &memoryManager[S]{
		sessions: make(map[int64]entry[S]),
		ttl:      opts.TTL,
		now:      now,
	}
}

func (m *memoryManager[S]) expired(e entry[S], now time.Time) bool {
	return m.ttl > 0 && now.Sub(e.touched) > m.ttl
}

// Get returns the session for a user if it exists and has not expired.
func (m *memoryManager[S]) Get(userID int64) (S, bool) {
	m.mu.RLock()
	e, ok := m.sessions[userID]
	m.mu.RUnlock()

	var zero S
	if !ok {
		return zero, false
	}
	if m.expired(e, m.now()) {
		m.Clear(userID)
		return zero, false
	}
	return e.value, true
}

// Set stores the session for a user, creating it if necessary.
func (m *memoryManager[S]) Set(userID int64, s S) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = entry[S]{value: s, touched: m.now()}
}

// Clear removes the entire session for a user.
func (m *memoryManager[S]) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// InProgress reports whether the user currently has a live session.
func (m *memoryManager[S]) InProgress(userID int64) bool {
	_, ok := m.Get(userID)
	return ok
}

// Len returns the number of stored sessions, expired ones included until swept.
func (m *memoryManager[S]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops expired sessions.
func (m *memoryManager[S]) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.sessions {
		if m.expired(e, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
