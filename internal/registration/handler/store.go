package handler

import (
	"sync"
	"time"

	"vetdesk/internal/platform/metrics"
	"vetdesk/internal/registration"
	id "vetdesk/pkg/domain"
	"vetdesk/pkg/platform/sentinel"
)

// Session is one open registration form.
type Session struct {
	ID        id.SessionID
	Surface   Surface
	Engine    *registration.Engine
	CreatedAt time.Time
}

// InMemorySessionStore keeps open sessions for the lifetime of the process.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*Session
	metrics  *metrics.Metrics
}

func NewInMemorySessionStore(m *metrics.Metrics) *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[id.SessionID]*Session),
		metrics:  m,
	}
}

func (s *InMemorySessionStore) Add(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	s.metrics.SessionOpened()
}

func (s *InMemorySessionStore) Get(sessionID id.SessionID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return session, nil
}

// Close removes the session and closes its engine.
func (s *InMemorySessionStore) Close(sessionID id.SessionID) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return sentinel.ErrNotFound
	}
	session.Engine.Close()
	s.metrics.SessionClosed()
	return nil
}

// CloseAll closes every session and waits for in-flight searches.
func (s *InMemorySessionStore) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[id.SessionID]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Engine.Close()
		s.metrics.SessionClosed()
	}
	for _, session := range sessions {
		session.Engine.Wait()
	}
}

func (s *InMemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
