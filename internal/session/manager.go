// Package session owns the live session registry: per-session
// serialisation, the bounded registry, and the lossy lifecycle
// broadcast.
package session

import (
	"sync"
	"time"

	"github.com/bnema/wayportal/internal/core"
	"github.com/bnema/wayportal/internal/logger"
	"github.com/bnema/wayportal/internal/metrics"
)

// Event pairs a lifecycle event with the session it happened on.
type Event struct {
	Session core.SessionID
	Event   core.LifecycleEvent
}

// Config bounds the manager.
type Config struct {
	// MaxSessions caps the registry size.
	MaxSessions int
	// EventBacklog is each subscriber's buffer; the oldest entries are
	// dropped when a subscriber falls behind.
	EventBacklog int
}

// DefaultConfig matches the portal defaults.
func DefaultConfig() Config {
	return Config{MaxSessions: 16, EventBacklog: 64}
}

type entry struct {
	mu      sync.Mutex
	session *core.Session
}

// Manager is the concurrent session registry. Lookups take a read
// lock; insertion and removal take the write lock; mutation of one
// session happens under that session's own lock via With.
type Manager struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[core.SessionID]*entry
	// spent records every id ever created, so an id is never reused
	// within one process lifetime.
	spent map[core.SessionID]struct{}

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewManager creates an empty registry.
func NewManager(cfg Config) *Manager {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultConfig().MaxSessions
	}
	if cfg.EventBacklog <= 0 {
		cfg.EventBacklog = DefaultConfig().EventBacklog
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[core.SessionID]*entry),
		spent:    make(map[core.SessionID]struct{}),
		subs:     make(map[int]chan Event),
	}
}

// Create inserts a new session in state Created.
func (m *Manager) Create(id core.SessionID, appID string) error {
	m.mu.Lock()
	if _, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return core.AlreadyExistsf(id)
	}
	if _, ok := m.spent[id]; ok {
		m.mu.Unlock()
		return core.AlreadyExistsf(id)
	}
	if len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return &core.Error{Kind: core.KindMaxSessionsExceeded}
	}
	now := time.Now()
	m.sessions[id] = &entry{session: &core.Session{
		ID:           id,
		AppID:        appID,
		State:        core.StateCreated,
		CreatedAt:    now,
		LastActivity: now,
	}}
	m.spent[id] = struct{}{}
	m.mu.Unlock()

	logger.Infof("session %s created for %s", id, appID)
	m.Emit(id, core.LifecycleEvent{Kind: core.LifecycleCreated})
	return nil
}

// With runs fn with exclusive access to the session. The per-session
// lock serialises all mutation; the registry lock is only held for the
// lookup.
func (m *Manager) With(id core.SessionID, fn func(*core.Session) error) error {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return core.NotFoundf(id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// A close may have raced the lookup; fail exactly as if the
	// session were already gone.
	if e.session.State == core.StateClosed {
		return core.NotFoundf(id)
	}
	return fn(e.session)
}

// Snapshot returns a copy of the session for diagnostics.
func (m *Manager) Snapshot(id core.SessionID) (core.Session, error) {
	var out core.Session
	err := m.With(id, func(s *core.Session) error {
		out = *s
		return nil
	})
	return out, err
}

// Close transitions the session to Closed and removes it. Idempotent:
// closing an unknown or already-closed id succeeds without emitting a
// second Closed event. fn, when non-nil, runs under the session lock
// before the state commits, for releasing backend resources.
func (m *Manager) Close(id core.SessionID, fn func(*core.Session)) error {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	if e.session.State == core.StateClosed {
		e.mu.Unlock()
		return nil
	}
	if fn != nil {
		fn(e.session)
	}
	e.session.State = core.StateClosed
	e.mu.Unlock()

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	logger.Infof("session %s closed", id)
	m.Emit(id, core.LifecycleEvent{Kind: core.LifecycleClosed})
	return nil
}

// CloseAll tears down every live session on shutdown.
func (m *Manager) CloseAll(fn func(*core.Session)) {
	m.mu.RLock()
	ids := make([]core.SessionID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		if err := m.Close(id, fn); err != nil {
			logger.Errorf("close session %s: %v", id, err)
		}
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs lists the live session ids.
func (m *Manager) IDs() []core.SessionID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.SessionID, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	return out
}

// Subscribe returns a lifecycle event channel and its cancel function.
// Delivery is lossy: when the backlog fills, the oldest entries are
// dropped rather than blocking producers. The stream is diagnostic,
// never the source of truth for session state.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan Event, m.cfg.EventBacklog)
	m.subs[id] = ch

	cancel := func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if sub, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Emit broadcasts a lifecycle event to every subscriber.
func (m *Manager) Emit(id core.SessionID, ev core.LifecycleEvent) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for _, ch := range m.subs {
		e := Event{Session: id, Event: ev}
		select {
		case ch <- e:
		default:
			// Drop the oldest entry to make room; if a racing reader
			// emptied the channel meanwhile the retry still lands.
			select {
			case <-ch:
				metrics.LifecycleEventsDropped.Inc()
			default:
			}
			select {
			case ch <- e:
			default:
			}
		}
	}
}
