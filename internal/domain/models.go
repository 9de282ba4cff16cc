package domain

import "time"

// QuestionType distinguishes how a question is answered and graded.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

// Option represents a possible answer for a choice question.
type Option struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models one quiz question. Short-answer questions carry their
// accepted answer as the text of options[0].
type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Prompt      string       `json:"prompt"`
	Options     []Option     `json:"options"`
	Points      int          `json:"points"` // defaults to 1 if zero
	Hint        string       `json:"hint,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
}

// AcceptedAnswer returns the canonical free-text answer for a short-answer
// question, or "" if none is defined.
func (q Question) AcceptedAnswer() string {
	if len(q.Options) == 0 {
		return ""
	}
	return q.Options[0].Text
}

// PointsOrDefault normalizes a zero point value to 1.
func (q Question) PointsOrDefault() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// Quiz is an ordered collection of questions with attempt-wide settings.
type Quiz struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Questions          []Question `json:"questions"`
	TimeLimitSeconds   int        `json:"timeLimitSeconds"`
	RandomizeQuestions bool       `json:"randomizeQuestions"`
	RandomizeOptions   bool       `json:"randomizeOptions"`
}

// TotalScore sums the point values of all questions.
func (q Quiz) TotalScore() int {
	total := 0
	for _, question := range q.Questions {
		total += question.PointsOrDefault()
	}
	return total
}

// NoSelection marks the absence of a chosen option index.
const NoSelection = -1

// Selection is an answer value that has not yet been committed: an option
// index for choice questions, free text for short-answer questions.
type Selection struct {
	Option int    `json:"option"`
	Text   string `json:"text"`
}

// EmptySelection returns a Selection carrying no answer.
func EmptySelection() Selection {
	return Selection{Option: NoSelection}
}

// GradeResult is the outcome of grading one submitted answer.
type GradeResult struct {
	Correct bool `json:"correct"`
	Awarded int  `json:"awarded"`
}

// AnswerRecord is one committed, graded answer keyed by question index.
type AnswerRecord struct {
	QuestionIndex int       `json:"questionIndex"`
	QuestionID    string    `json:"questionId"`
	Selection     Selection `json:"selection"`
	Correct       bool      `json:"correct"`
	Awarded       int       `json:"awarded"`
}

// Screen enumerates the attempt session screens.
type Screen string

const (
	ScreenWelcome    Screen = "welcome"
	ScreenInProgress Screen = "in_progress"
	ScreenScored     Screen = "scored"
	ScreenReviewing  Screen = "reviewing"
)

// AnswerResult is the per-question slice of a persisted attempt.
type AnswerResult struct {
	QuestionID string    `json:"questionId"`
	Selection  Selection `json:"selection"`
	Correct    bool      `json:"correct"`
	Awarded    int       `json:"awarded"`
}

// AttemptPayload is the persisted record of one finished attempt.
type AttemptPayload struct {
	AttemptID        string         `json:"attemptId"`
	QuizID           string         `json:"quizId"`
	UserID           string         `json:"userId"`
	Answers          []AnswerResult `json:"answers"`
	Score            int            `json:"score"`
	TotalPossible    int            `json:"totalPossible"`
	TimeSpentSeconds int            `json:"timeSpentSeconds"`
	Completed        bool           `json:"completed"`
	StartedAt        time.Time      `json:"startedAt"`
	FinishedAt       time.Time      `json:"finishedAt"`
}
