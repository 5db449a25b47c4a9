// Package terminal is a line-oriented presentation of a quiz.
package terminal

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jsamuelsen/tech-quiz-service/internal/domain"
)

// Screen text.
const (
	TextStartQuiz     = "Start Quiz"
	TextLoading       = "Loading…"
	TextQuizCompleted = "Quiz Completed"
	TextTakeNewQuiz   = "Take New Quiz"
	TextLoadFailed    = "Could not load questions"
)

// Renderer writes quiz snapshots as text. Answers are numbered from 1.
type Renderer struct {
	w io.Writer
}

// NewRenderer creates a renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// Render writes the screen for snap.
func (r *Renderer) Render(snap domain.Snapshot) error {
	var b strings.Builder

	switch snap.State {
	case domain.StateNotStarted:
		fmt.Fprintf(&b, "%s? [Y/n] ", TextStartQuiz)

	case domain.StateLoading:
		b.WriteString(TextLoading + "\n")

	case domain.StateInProgress:
		q := snap.Question
		fmt.Fprintf(&b, "\nQuestion %d/%d\n%s\n", snap.Index+1, snap.Total, q.Text)

		for i, a := range q.Answers {
			fmt.Fprintf(&b, "  %d) %s\n", i+1, a.Text)
		}

		fmt.Fprintf(&b, "Your answer [1-%d]: ", len(q.Answers))

	case domain.StateCompleted:
		fmt.Fprintf(&b, "\n%s\nYour score: %s\n%s? [Y/n] ", TextQuizCompleted, snap.ScoreText(), TextTakeNewQuiz)

	case domain.StateFailed:
		fmt.Fprintf(&b, "%s: %s\nTry again? [Y/n] ", TextLoadFailed, snap.Failure)
	}

	_, err := io.WriteString(r.w, b.String())

	return err
}

// Feedback writes the outcome of an answer.
func (r *Renderer) Feedback(correct bool) error {
	text := "Wrong.\n"
	if correct {
		text = "Correct!\n"
	}

	_, err := io.WriteString(r.w, text)

	return err
}

// Retry writes a prompt after input that could not be used.
func (r *Renderer) Retry(message string) error {
	_, err := fmt.Fprintf(r.w, "%s\nTry again: ", message)
	return err
}

// ParseAnswer converts a 1-based answer number typed by the player into a
// 0-based index for a question with count answers.
func ParseAnswer(line string, count int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, domain.NewValidationErrorWithValue("answer", "enter the number of an answer", line)
	}

	if n < 1 || n > count {
		return 0, domain.NewInvalidIndexError(n-1, count)
	}

	return n - 1, nil
}

// Confirm reports whether a yes/no reply means yes. Empty means yes.
func Confirm(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true
	default:
		return false
	}
}
