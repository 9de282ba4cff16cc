package memory

import (
	"context"
	"sync"

	"quiz-attempt-service/internal/domain"
)

// AttemptSink keeps finished attempts in memory. It backs the service
// when no Postgres URL is configured, and doubles as a capture point in
// tests.
type AttemptSink struct {
	mu       sync.RWMutex
	attempts map[string]domain.AttemptPayload
}

func NewAttemptSink() *AttemptSink {
	return &AttemptSink{attempts: make(map[string]domain.AttemptPayload)}
}

func (s *AttemptSink) SaveAttempt(_ context.Context, payload domain.AttemptPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[payload.AttemptID]; ok {
		return domain.ErrAttemptExists
	}
	s.attempts[payload.AttemptID] = payload
	return nil
}

// Get returns a stored attempt by ID.
func (s *AttemptSink) Get(attemptID string) (domain.AttemptPayload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.attempts[attemptID]
	return payload, ok
}

// Len returns the number of stored attempts.
func (s *AttemptSink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempts)
}
