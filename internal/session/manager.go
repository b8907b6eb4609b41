package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/listingbot/core/logger"
)

type entry struct {
	mu      sync.Mutex
	session *Session

	// guarded by Manager.mu
	refs     int
	lastSeen time.Time
}

// Manager owns every user's session together with the per-user lock that
// guards it. Calls for different users run in parallel; calls for the same
// user are mutually exclusive.
type Manager struct {
	mu      sync.Mutex
	entries map[int64]*entry

	idleTTL time.Duration
	now     func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithIdleTTL enables eviction of sessions idle for longer than d. Zero disables it.
func WithIdleTTL(d time.Duration) Option {
	return func(m *Manager) { m.idleTTL = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		entries: make(map[int64]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire is the atomic get-or-create: lookup, creation and the reference
// count bump all happen under m.mu so concurrent first contacts share one entry.
func (m *Manager) acquire(userID int64) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[userID]
	if !ok {
		e = &entry{session: &Session{}}
		m.entries[userID] = e
	}
	e.refs++
	e.lastSeen = m.now()
	return e
}

func (m *Manager) release(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	e.lastSeen = m.now()
}

// WithUserLock runs fn with exclusive access to the user's session,
// creating an empty session on first contact. fn must not call back into
// the Manager for the same user.
func (m *Manager) WithUserLock(userID int64, fn func(s *Session) error) error {
	e := m.acquire(userID)
	defer m.release(e)

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.session)
}

// Get returns a copy of the user's session, creating an empty one if needed.
func (m *Manager) Get(userID int64) Session {
	var out Session
	_ = m.WithUserLock(userID, func(s *Session) error {
		out = *s
		return nil
	})
	return out
}

// Exists reports whether a session has been created for the user.
func (m *Manager) Exists(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[userID]
	return ok
}

// Reset replaces the user's session with a fresh empty one.
func (m *Manager) Reset(userID int64) {
	_ = m.WithUserLock(userID, func(s *Session) error {
		*s = Session{}
		return nil
	})
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Evict drops sessions idle for longer than the configured TTL and returns
// how many were removed. Sessions that are locked or awaited are kept.
func (m *Manager) Evict() int {
	if m.idleTTL <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, e := range m.entries {
		if e.refs > 0 || now.Sub(e.lastSeen) <= m.idleTTL {
			continue
		}
		delete(m.entries, id)
		n++
	}
	return n
}

// RunJanitor evicts idle sessions every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	if m.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Evict(); n > 0 {
				logger.Debug(ctx, "sessions", "sessions.evicted",
					slog.Int("count", n),
					slog.Int("remaining", m.Len()),
					slog.Duration("idle_ttl", m.idleTTL),
				)
			}
		}
	}
}
