package domain

import (
	"strconv"
	"strings"
)

// Answer is one selectable option of a question.
type Answer struct {
	// Text is what the player sees.
	Text string

	// IsCorrect marks a scoring answer. A question may have zero or several.
	IsCorrect bool
}

// Question is a single multiple-choice item.
// This is a domain entity - it has no knowledge of external systems.
type Question struct {
	// ID is an opaque token, unique within a question set.
	ID string

	// Text is the question prompt.
	Text string

	// Answers in display order. The position is the index a player selects.
	Answers []Answer
}

// Clone returns a deep copy of the question.
func (q Question) Clone() Question {
	answers := make([]Answer, len(q.Answers))
	copy(answers, q.Answers)
	q.Answers = answers

	return q
}

// Validate checks that the question can be presented and answered.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return NewValidationErrorWithValue("question", "text is required", q.ID)
	}

	if len(q.Answers) == 0 {
		return NewValidationErrorWithValue("answers", "at least one answer is required", q.ID)
	}

	for i, a := range q.Answers {
		if strings.TrimSpace(a.Text) == "" {
			return NewValidationErrorWithValue("answers["+strconv.Itoa(i)+"].text", "text is required", q.ID)
		}
	}

	return nil
}

// ValidateQuestions checks every question and that identifiers are unique within the set.
// An empty set is valid.
func ValidateQuestions(questions []Question) error {
	seen := make(map[string]struct{}, len(questions))

	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return err
		}

		if q.ID == "" {
			continue
		}

		if _, dup := seen[q.ID]; dup {
			return NewValidationErrorWithValue("id", "duplicate question id", q.ID)
		}

		seen[q.ID] = struct{}{}
	}

	return nil
}

// CloneQuestions deep copies a question set.
func CloneQuestions(questions []Question) []Question {
	if questions == nil {
		return nil
	}

	out := make([]Question, len(questions))
	for i, q := range questions {
		out[i] = q.Clone()
	}

	return out
}
