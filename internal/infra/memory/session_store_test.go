package memory

import (
	"context"
	"testing"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/engine"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session := engine.NewSession(sampleQuiz(), "u1", NewAttemptSink(), engine.Config{})
	defer session.Close()

	store.Put("u1/quiz-1", session)
	if got, ok := store.Get("u1/quiz-1"); !ok || got != session {
		t.Fatalf("expected stored session back")
	}

	store.Delete("u1/quiz-1")
	if _, ok := store.Get("u1/quiz-1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestAttemptSinkRejectsDuplicates(t *testing.T) {
	sink := NewAttemptSink()
	payload := domain.AttemptPayload{AttemptID: "a1", QuizID: "quiz-1", UserID: "u1", Score: 3}

	if err := sink.SaveAttempt(context.Background(), payload); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := sink.SaveAttempt(context.Background(), payload); err != domain.ErrAttemptExists {
		t.Fatalf("expected ErrAttemptExists, got %v", err)
	}
	if sink.Len() != 1 {
		t.Fatalf("expected single attempt, got %d", sink.Len())
	}
	if stored, ok := sink.Get("a1"); !ok || stored.Score != 3 {
		t.Fatalf("expected stored attempt back, got %+v ok=%v", stored, ok)
	}
}
