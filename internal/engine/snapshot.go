package engine

import (
	"time"

	"quiz-attempt-service/internal/domain"
)

// OptionView is a client-safe option: eliminated options are omitted and
// correctness never leaves the engine while an attempt runs.
type OptionView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// QuestionView is the presentation slice of the current question.
type QuestionView struct {
	ID      string              `json:"id"`
	Type    domain.QuestionType `json:"type"`
	Prompt  string              `json:"prompt"`
	Options []OptionView        `json:"options"`
	Points  int                 `json:"points"`
	Hint    string              `json:"hint,omitempty"` // set only while revealed
}

// ReviewEntry exposes one graded answer with its key, for the review
// screen only.
type ReviewEntry struct {
	QuestionIndex int              `json:"questionIndex"`
	QuestionID    string           `json:"questionId"`
	Prompt        string           `json:"prompt"`
	Selection     domain.Selection `json:"selection"`
	Correct       bool             `json:"correct"`
	Awarded       int              `json:"awarded"`
	Points        int              `json:"points"`
	Explanation   string           `json:"explanation,omitempty"`
}

// Snapshot is the full observable state of an attempt session, pushed to
// subscribers after every accepted command and on timer ticks.
type Snapshot struct {
	AttemptID        string           `json:"attemptId"`
	QuizID           string           `json:"quizId"`
	QuizTitle        string           `json:"quizTitle"`
	Screen           domain.Screen    `json:"screen"`
	QuestionCount    int              `json:"questionCount"`
	CurrentIndex     int              `json:"currentIndex"`
	Question         *QuestionView    `json:"question,omitempty"`
	Pending          domain.Selection `json:"pending"`
	Answered         []bool           `json:"answered"`
	ElapsedSeconds   int              `json:"elapsedSeconds"`
	RemainingSeconds int              `json:"remainingSeconds"`
	FinalScore       int              `json:"finalScore"`
	TotalPossible    int              `json:"totalPossible"`
	Submitting       bool             `json:"submitting"`
	FiftyUsed        bool             `json:"fiftyUsed"`
	Review           []ReviewEntry    `json:"review,omitempty"`
}

// Snapshot returns the current observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel receiving state snapshots. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow client never blocks the engine.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		AttemptID:        s.attemptID,
		QuizID:           s.quiz.ID,
		QuizTitle:        s.quiz.Title,
		Screen:           s.screen,
		QuestionCount:    len(s.quiz.Questions),
		CurrentIndex:     s.current,
		Pending:          s.pending,
		Answered:         s.ledger.Answered(),
		ElapsedSeconds:   s.timer.ElapsedSeconds(),
		RemainingSeconds: int(s.timer.Remaining() / time.Second),
		FinalScore:       s.finalScore,
		TotalPossible:    s.quiz.TotalScore(),
		Submitting:       s.submitting,
		FiftyUsed:        s.fiftyUsed[s.current],
	}
	if s.screen == domain.ScreenInProgress && s.current < len(s.quiz.Questions) {
		snap.Question = s.questionViewLocked(s.current)
	}
	if s.screen == domain.ScreenReviewing {
		snap.Review = s.reviewLocked()
	}
	return snap
}

func (s *Session) questionViewLocked(index int) *QuestionView {
	question := s.quiz.Questions[index]
	view := &QuestionView{
		ID:     question.ID,
		Type:   question.Type,
		Prompt: question.Prompt,
		Points: question.PointsOrDefault(),
	}
	if question.Type != domain.ShortAnswer {
		hidden := s.hidden[index]
		for i, opt := range question.Options {
			if hidden[i] {
				continue
			}
			view.Options = append(view.Options, OptionView{Index: i, Text: opt.Text})
		}
	}
	if s.hintShown[index] {
		view.Hint = question.Hint
	}
	return view
}

func (s *Session) reviewLocked() []ReviewEntry {
	records := s.ledger.Records()
	entries := make([]ReviewEntry, 0, len(records))
	for _, record := range records {
		question := s.quiz.Questions[record.QuestionIndex]
		entries = append(entries, ReviewEntry{
			QuestionIndex: record.QuestionIndex,
			QuestionID:    record.QuestionID,
			Prompt:        question.Prompt,
			Selection:     record.Selection,
			Correct:       record.Correct,
			Awarded:       record.Awarded,
			Points:        question.PointsOrDefault(),
			Explanation:   question.Explanation,
		})
	}
	return entries
}
