package engine

import (
	"sort"

	"quiz-attempt-service/internal/domain"
)

// Ledger holds the graded answer records of one attempt, keyed by question
// index. Records are created only through Commit; re-answering a question
// overwrites its record in place. The Ledger is not safe for concurrent
// use; the owning Session serializes access.
type Ledger struct {
	questionCount int
	records       map[int]domain.AnswerRecord
}

func NewLedger(questionCount int) *Ledger {
	return &Ledger{
		questionCount: questionCount,
		records:       make(map[int]domain.AnswerRecord),
	}
}

// Commit grades the selection and upserts the record for the question
// index. Committing the same answer twice yields the same record.
func (l *Ledger) Commit(index int, question domain.Question, sel domain.Selection, hidden map[int]bool) (domain.AnswerRecord, error) {
	if index < 0 || index >= l.questionCount {
		return domain.AnswerRecord{}, domain.ErrQuestionIndex
	}
	result := Grade(question, sel, hidden)
	record := domain.AnswerRecord{
		QuestionIndex: index,
		QuestionID:    question.ID,
		Selection:     sel,
		Correct:       result.Correct,
		Awarded:       result.Awarded,
	}
	l.records[index] = record
	return record, nil
}

// Get returns the committed record for a question index, if any.
func (l *Ledger) Get(index int) (domain.AnswerRecord, bool) {
	record, ok := l.records[index]
	return record, ok
}

// Has reports whether a question index holds a committed record.
func (l *Ledger) Has(index int) bool {
	_, ok := l.records[index]
	return ok
}

// Len returns the number of committed records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// TotalScore sums awarded points over all committed records.
func (l *Ledger) TotalScore() int {
	total := 0
	for _, record := range l.records {
		total += record.Awarded
	}
	return total
}

// Records returns all committed records ordered by question index.
func (l *Ledger) Records() []domain.AnswerRecord {
	out := make([]domain.AnswerRecord, 0, len(l.records))
	for _, record := range l.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QuestionIndex < out[j].QuestionIndex
	})
	return out
}

// Answered returns a per-question bitmap of committed records, for
// progress indicators.
func (l *Ledger) Answered() []bool {
	out := make([]bool, l.questionCount)
	for index := range l.records {
		out[index] = true
	}
	return out
}

// Clear drops every record, for a fresh attempt on the same quiz.
func (l *Ledger) Clear() {
	l.records = make(map[int]domain.AnswerRecord)
}
