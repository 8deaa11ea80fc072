package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/bookbot/core/logger"
)

// MemoryStore is an in-process Store with lazy and periodic expiry.
type MemoryStore[S comparable, F any] struct {
	mu       sync.RWMutex
	sessions map[int64]Session[S, F]
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore constructs an in-memory store; ttl <= 0 disables expiry.
func NewMemoryStore[S comparable, F any](ttl time.Duration) *MemoryStore[S, F] {
	return &MemoryStore[S, F]{
		sessions: make(map[int64]Session[S, F]),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Load implements Store.
func (m *MemoryStore[S, F]) Load(_ context.Context, userID int64) (Session[S, F], bool, error) {
	m.mu.RLock()
	sess, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		return Session[S, F]{}, false, nil
	}
	if sess.Expired(m.now(), m.ttl) {
		m.mu.Lock()
		if cur, still := m.sessions[userID]; still && cur.Expired(m.now(), m.ttl) {
			delete(m.sessions, userID)
		}
		m.mu.Unlock()
		return Session[S, F]{}, false, nil
	}
	return sess.clone(), true, nil
}

// Save implements Store.
func (m *MemoryStore[S, F]) Save(_ context.Context, userID int64, s Session[S, F]) error {
	s = s.clone()
	s.UpdatedAt = m.now()
	m.mu.Lock()
	m.sessions[userID] = s
	m.mu.Unlock()
	return nil
}

// Erase implements Store.
func (m *MemoryStore[S, F]) Erase(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included until swept.
func (m *MemoryStore[S, F]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore[S, F]) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.Expired(now, m.ttl) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (m *MemoryStore[S, F]) RunJanitor(ctx context.Context, interval time.Duration, name string) {
	if interval <= 0 || m.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.Debug(ctx, "state", "session.sweep",
					slog.String("workflow", name),
					slog.Int("count", n),
				)
			}
		}
	}
}
