package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"quiz-attempt-service/internal/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr, goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
}

type countingLoader struct {
	quizzes map[string]domain.Quiz
	calls   int
}

func (l *countingLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Capitals",
		Questions: []domain.Question{
			{
				ID:     "q1",
				Type:   domain.MultipleChoice,
				Prompt: "Capital of France?",
				Options: []domain.Option{
					{Text: "Lyon"},
					{Text: "Paris", Correct: true},
				},
				Points: 5,
				Hint:   "It hosts the Eiffel Tower.",
			},
		},
		TimeLimitSeconds: 120,
	}
}

func TestQuizRepositoryCachesDocument(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	loader := &countingLoader{quizzes: map[string]domain.Quiz{"quiz-1": sampleQuiz()}}
	repo := NewQuizRepository(client, loader, 5*time.Minute)

	quiz, err := repo.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Questions[0].Hint == "" || quiz.TimeLimitSeconds != 120 {
		t.Fatalf("expected full document through cache, got %+v", quiz)
	}
	if !mr.Exists("quiz:quiz-1:doc") {
		t.Fatalf("expected cached document in redis")
	}

	if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryMiss(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewQuizRepository(client, &countingLoader{}, 5*time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "quiz-404"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}
