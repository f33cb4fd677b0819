package pipeline

import (
	"context"
	"sync"
)

// #region manager

// Manager owns the live sessions. Steps within one session are serialized by
// the session's own lock; distinct sessions run concurrently.
type Manager struct {
	pipeline *Pipeline

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(p *Pipeline) *Manager {
	return &Manager{
		pipeline: p,
		sessions: make(map[string]*Session),
	}
}

// Session returns the session with the given id, creating it on first use.
// An empty id gets a fresh random one.
func (m *Manager) Session(id string) *Session {
	if id != "" {
		m.mu.RLock()
		s, ok := m.sessions[id]
		m.mu.RUnlock()
		if ok {
			return s
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if id != "" {
		if s, ok := m.sessions[id]; ok {
			return s
		}
	}
	s := NewSession(id)
	m.sessions[s.ID] = s
	return s
}

// Step routes one decoding step to the named session.
func (m *Manager) Step(ctx context.Context, sessionID string, in StepInput) StepOutcome {
	return m.pipeline.Step(ctx, m.Session(sessionID), in)
}

// Remove drops a finished session. Its recorded history stays in memory
// storage; only the in-flight gate state is discarded.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// #endregion manager
