package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-attempt-service/internal/domain"
)

// attemptRow is the bun model for one persisted attempt.
type attemptRow struct {
	bun.BaseModel `bun:"table:attempts"`

	ID               string    `bun:"id,pk"`
	QuizID           string    `bun:"quiz_id,notnull"`
	UserID           string    `bun:"user_id,notnull"`
	Score            int       `bun:"score,notnull"`
	TotalPossible    int       `bun:"total_possible,notnull"`
	TimeSpentSeconds int       `bun:"time_spent_seconds,notnull"`
	Completed        bool      `bun:"completed,notnull"`
	StartedAt        time.Time `bun:"started_at,notnull"`
	FinishedAt       time.Time `bun:"finished_at,notnull"`
	Answers          []byte    `bun:"answers,type:jsonb"`
}

// AttemptStore writes finished attempts to Postgres. It implements
// engine.Sink.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) SaveAttempt(ctx context.Context, payload domain.AttemptPayload) error {
	answers, err := json.Marshal(payload.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	row := &attemptRow{
		ID:               payload.AttemptID,
		QuizID:           payload.QuizID,
		UserID:           payload.UserID,
		Score:            payload.Score,
		TotalPossible:    payload.TotalPossible,
		TimeSpentSeconds: payload.TimeSpentSeconds,
		Completed:        payload.Completed,
		StartedAt:        payload.StartedAt,
		FinishedAt:       payload.FinishedAt,
		Answers:          answers,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if pgErr, ok := err.(pgdriver.Error); ok && pgErr.Field('C') == "23505" {
			return domain.ErrAttemptExists
		}
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}
