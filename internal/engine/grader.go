package engine

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"quiz-attempt-service/internal/domain"
)

// similarityThreshold is the normalized edit-distance ratio at or above
// which a free-text answer counts as correct.
const similarityThreshold = 0.85

// Grade evaluates one submitted answer against one question. hidden holds
// option indexes eliminated by the 50/50 lifeline for this question; a
// selection pointing at a hidden or out-of-range option is wrong, not an
// error, because indexes are user-controlled state echoed back from the
// client. Grade never panics; malformed question data degrades to a zero
// result.
func Grade(question domain.Question, sel domain.Selection, hidden map[int]bool) domain.GradeResult {
	switch question.Type {
	case domain.MultipleChoice, domain.TrueFalse:
		return gradeChoice(question, sel.Option, hidden)
	case domain.ShortAnswer:
		return gradeText(question, sel.Text)
	default:
		return domain.GradeResult{}
	}
}

func gradeChoice(question domain.Question, option int, hidden map[int]bool) domain.GradeResult {
	if option < 0 || option >= len(question.Options) || hidden[option] {
		return domain.GradeResult{}
	}
	if !question.Options[option].Correct {
		return domain.GradeResult{}
	}
	return domain.GradeResult{Correct: true, Awarded: question.PointsOrDefault()}
}

func gradeText(question domain.Question, text string) domain.GradeResult {
	ratio := Similarity(text, question.AcceptedAnswer())
	points := question.PointsOrDefault()
	if ratio >= similarityThreshold {
		return domain.GradeResult{Correct: true, Awarded: points}
	}
	// Soft grading: near misses earn points proportional to closeness.
	return domain.GradeResult{Awarded: int(math.Floor(float64(points) * ratio))}
}

// Similarity returns the normalized inverse edit distance between two
// answers after trimming and lowercasing: 1 is an exact match, 0 shares
// nothing. Two empty strings are an exact match.
func Similarity(a, b string) float64 {
	a = normalizeAnswer(a)
	b = normalizeAnswer(b)

	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
