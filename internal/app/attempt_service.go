package app

import (
	"context"
	"fmt"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/engine"
)

// SessionRepository abstracts where live attempt sessions are kept
// (in-memory today; the key is userID/quizID).
type SessionRepository interface {
	Put(key string, session *engine.Session)
	Get(key string) (*engine.Session, bool)
	Delete(key string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// IdentityVerifier resolves a bearer token to a user identifier.
type IdentityVerifier interface {
	UserID(token string) (string, error)
}

// AttemptService owns the lifecycle of attempt sessions: identity
// resolution, quiz loading, and session creation/reuse/teardown. The
// sessions themselves hold all attempt state.
type AttemptService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	identity IdentityVerifier
	sink     engine.Sink
	cfg      engine.Config
}

func NewAttemptService(sessions SessionRepository, quizzes QuizRepository, identity IdentityVerifier, sink engine.Sink, cfg engine.Config) *AttemptService {
	return &AttemptService{
		sessions: sessions,
		quizzes:  quizzes,
		identity: identity,
		sink:     sink,
		cfg:      cfg,
	}
}

// Begin resolves the caller's identity, loads the quiz, and returns the
// live session for this user and quiz, creating one on first call. A
// token that fails verification blocks the attempt before any quiz data
// is fetched.
func (s *AttemptService) Begin(ctx context.Context, quizID, token string) (*engine.Session, error) {
	userID, err := s.identity.UserID(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthRequired, err)
	}

	key := sessionKey(quizID, userID)
	if session, ok := s.sessions.Get(key); ok {
		return session, nil
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	session := engine.NewSession(quiz, userID, s.sink, s.cfg)
	s.sessions.Put(key, session)
	return session, nil
}

// Session returns the live session for a user and quiz, if any.
func (s *AttemptService) Session(quizID, userID string) (*engine.Session, error) {
	session, ok := s.sessions.Get(sessionKey(quizID, userID))
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// End tears the session down and forgets it. Any still-running timers are
// cancelled so no callback outlives the session.
func (s *AttemptService) End(quizID, userID string) {
	key := sessionKey(quizID, userID)
	if session, ok := s.sessions.Get(key); ok {
		session.Close()
		s.sessions.Delete(key)
	}
}

func sessionKey(quizID, userID string) string {
	return userID + "/" + quizID
}
