package engine

import (
	"time"

	"quiz-attempt-service/internal/domain"
)

// AssembleAttempt builds the persistable record of a finished attempt from
// the ledger plus timing metadata. Time spent is the wall-clock span
// between the start and finish instants, not the timer's clamped elapsed
// value, so an over-deadline save still records the real duration.
func AssembleAttempt(attemptID string, quiz domain.Quiz, ledger *Ledger, userID string, startedAt, finishedAt time.Time) domain.AttemptPayload {
	records := ledger.Records()
	answers := make([]domain.AnswerResult, 0, len(records))
	for _, record := range records {
		answers = append(answers, domain.AnswerResult{
			QuestionID: record.QuestionID,
			Selection:  record.Selection,
			Correct:    record.Correct,
			Awarded:    record.Awarded,
		})
	}
	return domain.AttemptPayload{
		AttemptID:        attemptID,
		QuizID:           quiz.ID,
		UserID:           userID,
		Answers:          answers,
		Score:            ledger.TotalScore(),
		TotalPossible:    quiz.TotalScore(),
		TimeSpentSeconds: int(finishedAt.Sub(startedAt) / time.Second),
		Completed:        true,
		StartedAt:        startedAt.UTC(),
		FinishedAt:       finishedAt.UTC(),
	}
}
