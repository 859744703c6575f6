package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/Simplici0/markup/internal/metrics"
	"github.com/Simplici0/markup/internal/wizard"
)

type memoryEntry struct {
	session wizard.Session
	expires time.Time
}

// Memory is a process-local Store. Expired sessions are dropped lazily on
// access and by Sweep.
type Memory struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memoryEntry
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memoryEntry),
	}
}

func (m *Memory) Load(_ context.Context, id string) (wizard.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return wizard.Session{}, ErrNotFound
	}
	if m.now().After(entry.expires) {
		m.remove(id)
		return wizard.Session{}, ErrNotFound
	}
	return entry.session, nil
}

func (m *Memory) Save(_ context.Context, s wizard.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = memoryEntry{session: s, expires: m.now().Add(m.ttl)}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.remove(id)
	return nil
}

// Sweep removes every expired session and returns how many were dropped.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	dropped := 0
	for id, entry := range m.sessions {
		if now.After(entry.expires) {
			delete(m.sessions, id)
			dropped++
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return dropped
}

// Len reports how many sessions are held, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Memory) remove(id string) {
	delete(m.sessions, id)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
}
