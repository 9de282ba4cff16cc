package engine

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-attempt-service/internal/domain"
)

// Sink persists finished attempts.
type Sink interface {
	SaveAttempt(ctx context.Context, payload domain.AttemptPayload) error
}

// Config tunes attempt session behavior.
type Config struct {
	// HintWindow is how long a revealed hint stays visible.
	HintWindow time.Duration
	// TickInterval drives timer ticks and snapshot pushes.
	TickInterval time.Duration
}

// DefaultConfig returns the session defaults.
func DefaultConfig() Config {
	return Config{
		HintWindow:   10 * time.Second,
		TickInterval: time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HintWindow <= 0 {
		c.HintWindow = d.HintWindow
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	return c
}

// Session drives a single quiz attempt: screen transitions, the current
// question pointer, pending answers, lifelines, the timer, and submission.
// All commands are safe for concurrent use; internally every transition
// runs under one mutex so the machine behaves as a single logical thread.
type Session struct {
	cfg    Config
	source domain.Quiz
	userID string
	sink   Sink
	clock  func() time.Time
	rnd    *rand.Rand

	mu         sync.Mutex
	attemptID  string
	quiz       domain.Quiz // working copy, reshuffled each Start
	screen     domain.Screen
	current    int
	pending    domain.Selection
	ledger     *Ledger
	timer      *Timer
	hidden     map[int]map[int]bool // question index -> eliminated option indexes
	fiftyUsed  map[int]bool
	hintShown  map[int]bool
	hintTimers map[int]*time.Timer
	startedAt  time.Time
	finishedAt time.Time
	finalScore int
	submitting bool
	closed     bool

	subscribers map[chan Snapshot]struct{}
}

func NewSession(quiz domain.Quiz, userID string, sink Sink, cfg Config) *Session {
	return NewSessionWithClock(quiz, userID, sink, cfg, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(quiz domain.Quiz, userID string, sink Sink, cfg Config, clock func() time.Time) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		cfg:         cfg,
		source:      quiz,
		userID:      userID,
		sink:        sink,
		clock:       clock,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		quiz:        quiz,
		screen:      domain.ScreenWelcome,
		pending:     domain.EmptySelection(),
		ledger:      NewLedger(len(quiz.Questions)),
		hidden:      make(map[int]map[int]bool),
		fiftyUsed:   make(map[int]bool),
		hintShown:   make(map[int]bool),
		hintTimers:  make(map[int]*time.Timer),
		subscribers: make(map[chan Snapshot]struct{}),
	}
	deadline := time.Duration(quiz.TimeLimitSeconds) * time.Second
	s.timer = NewTimerWithClock(deadline, cfg.TickInterval, s.handleTick, s.handleDeadline, clock)
	return s
}

// UserID returns the identity the attempt is stamped with.
func (s *Session) UserID() string { return s.userID }

// Start begins a fresh attempt: Welcome (or a finished screen, for a
// retake) to InProgress. The ledger, timer, lifelines, and working copy
// are all rebuilt.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrInvalidState
	}
	if s.screen == domain.ScreenInProgress {
		return domain.ErrInvalidState
	}
	if s.userID == "" {
		return domain.ErrAuthRequired
	}

	s.attemptID = uuid.NewString()
	s.quiz = s.workingCopy()
	s.ledger = NewLedger(len(s.quiz.Questions))
	s.current = 0
	s.pending = domain.EmptySelection()
	s.hidden = make(map[int]map[int]bool)
	s.fiftyUsed = make(map[int]bool)
	s.cancelHintsLocked()
	s.finalScore = 0
	s.finishedAt = time.Time{}
	s.startedAt = s.clock()
	s.screen = domain.ScreenInProgress
	s.timer.Reset()
	s.timer.Start()
	s.broadcastLocked()
	return nil
}

// workingCopy deep-copies the source quiz and applies the randomization
// flags. Lifeline elimination mutates only this copy, never the source.
func (s *Session) workingCopy() domain.Quiz {
	quiz := s.source
	quiz.Questions = make([]domain.Question, len(s.source.Questions))
	order := make([]int, len(s.source.Questions))
	for i := range order {
		order[i] = i
	}
	if quiz.RandomizeQuestions {
		order = s.rnd.Perm(len(order))
	}
	for i, from := range order {
		question := s.source.Questions[from]
		question.Options = append([]domain.Option(nil), question.Options...)
		// Only choice options shuffle; a short answer's options[0] is its key.
		if quiz.RandomizeOptions && question.Type == domain.MultipleChoice {
			s.rnd.Shuffle(len(question.Options), func(a, b int) {
				question.Options[a], question.Options[b] = question.Options[b], question.Options[a]
			})
		}
		quiz.Questions[i] = question
	}
	return quiz
}

// SelectAnswer records a not-yet-committed answer for the current
// question. Grading is deferred to commit time so the learner can change
// their mind before leaving the question.
func (s *Session) SelectAnswer(sel domain.Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	s.pending = sel
	s.broadcastLocked()
	return nil
}

// GoNext commits the pending answer and advances, or submits from the
// last question. An empty answer is rejected without moving the pointer.
func (s *Session) GoNext(ctx context.Context) error {
	s.mu.Lock()
	if err := s.requireInProgressLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.pendingEmptyLocked() {
		s.mu.Unlock()
		return domain.ErrEmptyAnswer
	}
	if _, err := s.ledger.Commit(s.current, s.quiz.Questions[s.current], s.pending, s.hidden[s.current]); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.current == len(s.quiz.Questions)-1 {
		if s.ledger.Len() < len(s.quiz.Questions) {
			s.broadcastLocked()
			s.mu.Unlock()
			return domain.ErrIncompleteAttempt
		}
		return s.submitLocked(ctx, false)
	}
	s.current++
	s.restorePendingLocked()
	s.broadcastLocked()
	s.mu.Unlock()
	return nil
}

// GoPrevious commits any pending answer and moves back one question.
// Unlike GoNext it never demands an answer for the question being left.
func (s *Session) GoPrevious() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	if s.current == 0 {
		return domain.ErrQuestionIndex
	}
	s.commitPendingLocked()
	s.current--
	s.restorePendingLocked()
	s.broadcastLocked()
	return nil
}

// JumpTo navigates directly to a question, committing any pending answer
// on the way out.
func (s *Session) JumpTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.quiz.Questions) {
		return domain.ErrQuestionIndex
	}
	s.commitPendingLocked()
	s.current = index
	s.restorePendingLocked()
	s.broadcastLocked()
	return nil
}

// RevealHint shows the current question's hint for the configured window.
// Revealing again while visible restarts the window.
func (s *Session) RevealHint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	if s.quiz.Questions[s.current].Hint == "" {
		return domain.ErrLifelineUnavailable
	}
	index := s.current
	attemptID := s.attemptID
	if t, ok := s.hintTimers[index]; ok {
		t.Stop()
	}
	s.hintShown[index] = true
	s.hintTimers[index] = time.AfterFunc(s.cfg.HintWindow, func() {
		s.clearHint(attemptID, index)
	})
	s.broadcastLocked()
	return nil
}

// clearHint runs from the one-shot hint timer. The attempt ID guard keeps
// a stale callback from touching a superseded attempt.
func (s *Session) clearHint(attemptID string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attemptID != attemptID {
		return
	}
	delete(s.hintShown, index)
	delete(s.hintTimers, index)
	s.broadcastLocked()
}

// FiftyFifty eliminates two incorrect options from the current multiple
// choice question. A second use on the same question is a no-op; it never
// re-reveals an eliminated option.
func (s *Session) FiftyFifty() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	question := s.quiz.Questions[s.current]
	if question.Type != domain.MultipleChoice {
		return domain.ErrLifelineUnavailable
	}
	if s.fiftyUsed[s.current] {
		return nil
	}

	hidden := s.hidden[s.current]
	candidates := make([]int, 0, len(question.Options))
	for i, opt := range question.Options {
		if hidden[i] || opt.Correct {
			continue
		}
		candidates = append(candidates, i)
	}
	toHide := 2
	if len(candidates) < toHide {
		toHide = len(candidates)
	}
	if hidden == nil {
		hidden = make(map[int]bool)
		s.hidden[s.current] = hidden
	}
	for _, pick := range s.rnd.Perm(len(candidates))[:toHide] {
		hidden[candidates[pick]] = true
	}
	s.fiftyUsed[s.current] = true
	// A pending selection may now point at an eliminated option; drop it
	// rather than letting it be committed as a stale pick.
	if s.pending.Option != domain.NoSelection && hidden[s.pending.Option] {
		s.pending = domain.EmptySelection()
	}
	s.broadcastLocked()
	return nil
}

// Submit finishes the attempt manually. Every question must hold a
// committed record; the pending answer for the current question is
// committed first.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if err := s.requireInProgressLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.commitPendingLocked()
	if s.ledger.Len() < len(s.quiz.Questions) {
		s.mu.Unlock()
		return domain.ErrIncompleteAttempt
	}
	return s.submitLocked(ctx, false)
}

// handleDeadline is the timer's deadline callback: the attempt is scored
// as-is. An uncommitted pending answer is forfeited, not graded. The
// closed check matters here: the timer invokes callbacks outside its own
// lock, so one may already be in flight when Close stops the timer.
func (s *Session) handleDeadline() {
	s.mu.Lock()
	if s.closed || s.screen != domain.ScreenInProgress || s.submitting {
		s.mu.Unlock()
		return
	}
	s.pending = domain.EmptySelection()
	_ = s.submitLocked(context.Background(), true)
}

// submitLocked hands the assembled attempt to the sink. The mutex is
// released for the round trip; while it is outstanding the submitting
// flag rejects every answer-mutating command. Callers pass in a locked
// session; submitLocked unlocks it.
func (s *Session) submitLocked(ctx context.Context, timedOut bool) error {
	if s.submitting {
		s.mu.Unlock()
		return domain.ErrSubmitInFlight
	}
	if s.userID == "" {
		s.mu.Unlock()
		return domain.ErrAuthRequired
	}
	s.submitting = true
	s.finishedAt = s.clock()
	payload := AssembleAttempt(s.attemptID, s.quiz, s.ledger, s.userID, s.startedAt, s.finishedAt)
	s.broadcastLocked()
	s.mu.Unlock()

	err := s.sink.SaveAttempt(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if err != nil && !errors.Is(err, domain.ErrAttemptExists) {
		// Failed remote write: no state transition. Committed answers
		// stay in the ledger so a retry loses nothing.
		s.finishedAt = time.Time{}
		if timedOut {
			s.broadcastLocked()
		}
		return err
	}
	s.timer.Stop()
	s.cancelHintsLocked()
	s.finalScore = payload.Score
	s.pending = domain.EmptySelection()
	s.screen = domain.ScreenScored
	s.broadcastLocked()
	return nil
}

// EnterReview moves from Scored to Reviewing.
func (s *Session) EnterReview() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != domain.ScreenScored {
		return domain.ErrInvalidState
	}
	s.screen = domain.ScreenReviewing
	s.broadcastLocked()
	return nil
}

// ExitReview moves from Reviewing back to Scored.
func (s *Session) ExitReview() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != domain.ScreenReviewing {
		return domain.ErrInvalidState
	}
	s.screen = domain.ScreenScored
	s.broadcastLocked()
	return nil
}

// Exit returns to the Welcome screen from any post-start state. Ledger
// contents survive until the next Start so a finished attempt stays
// reviewable; timers are cancelled immediately.
func (s *Session) Exit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen == domain.ScreenWelcome {
		return domain.ErrInvalidState
	}
	if s.submitting {
		return domain.ErrSubmitInFlight
	}
	s.timer.Stop()
	s.cancelHintsLocked()
	s.pending = domain.EmptySelection()
	s.screen = domain.ScreenWelcome
	s.broadcastLocked()
	return nil
}

// Close tears the session down: timers halt and subscribers are released.
// No callback fires after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.timer.Stop()
	s.cancelHintsLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) requireInProgressLocked() error {
	if s.closed || s.screen != domain.ScreenInProgress {
		return domain.ErrInvalidState
	}
	if s.submitting {
		return domain.ErrSubmitInFlight
	}
	return nil
}

func (s *Session) pendingEmptyLocked() bool {
	if s.quiz.Questions[s.current].Type == domain.ShortAnswer {
		return strings.TrimSpace(s.pending.Text) == ""
	}
	return s.pending.Option == domain.NoSelection
}

// commitPendingLocked commits a non-empty pending answer. Backward and
// direct navigation use it: the ledger always reflects the last answer
// seen for a visited question, but leaving without an answer is allowed.
func (s *Session) commitPendingLocked() {
	if s.pendingEmptyLocked() {
		return
	}
	_, _ = s.ledger.Commit(s.current, s.quiz.Questions[s.current], s.pending, s.hidden[s.current])
}

// restorePendingLocked reloads the pending selection from the ledger for
// the question just navigated to, so earlier answers survive navigation.
func (s *Session) restorePendingLocked() {
	if record, ok := s.ledger.Get(s.current); ok {
		s.pending = record.Selection
		return
	}
	s.pending = domain.EmptySelection()
}

func (s *Session) cancelHintsLocked() {
	for index, t := range s.hintTimers {
		t.Stop()
		delete(s.hintTimers, index)
	}
	s.hintShown = make(map[int]bool)
}

func (s *Session) handleTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != domain.ScreenInProgress {
		return
	}
	s.broadcastLocked()
}
