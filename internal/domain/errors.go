package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSessionNotFound is returned when an attempt session has not been started.
	ErrSessionNotFound = errors.New("attempt session not found")
	// ErrEmptyAnswer rejects advancing past a question without an answer.
	ErrEmptyAnswer = errors.New("answer required before moving on")
	// ErrIncompleteAttempt rejects manual submission while questions remain unanswered.
	ErrIncompleteAttempt = errors.New("answer all questions before submitting")
	// ErrInvalidState rejects a command issued on the wrong screen.
	ErrInvalidState = errors.New("command not valid in current state")
	// ErrSubmitInFlight rejects re-entrant submission while a save is outstanding.
	ErrSubmitInFlight = errors.New("submission already in progress")
	// ErrQuestionIndex rejects navigation outside the question range.
	ErrQuestionIndex = errors.New("question index out of range")
	// ErrLifelineUnavailable rejects 50/50 on questions it cannot apply to.
	ErrLifelineUnavailable = errors.New("lifeline not available for this question")
	// ErrAuthRequired blocks attempts that lack a resolved user identity.
	ErrAuthRequired = errors.New("authentication required")
	// ErrAttemptExists indicates an attempt was already persisted under the same ID.
	ErrAttemptExists = errors.New("attempt already submitted")
)
