package memory

import (
	"sync"

	"quiz-attempt-service/internal/engine"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Each attempt owns its own Session; the store only maps keys to them.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*engine.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*engine.Session),
	}
}

func (s *SessionStore) Put(key string, session *engine.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = session
}

func (s *SessionStore) Get(key string) (*engine.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	return session, ok
}

func (s *SessionStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}
