package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/tech-quiz-service/internal/app"
	"github.com/jsamuelsen/tech-quiz-service/internal/domain"
	"github.com/jsamuelsen/tech-quiz-service/internal/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func questions() []domain.Question {
	return []domain.Question{
		{
			ID:      "q1",
			Text:    "Which keyword defers a call?",
			Answers: []domain.Answer{{Text: "later"}, {Text: "defer", IsCorrect: true}},
		},
		{
			ID:      "q2",
			Text:    "Which built-in appends to a slice?",
			Answers: []domain.Answer{{Text: "append", IsCorrect: true}, {Text: "push"}},
		},
	}
}

func newQuiz(t *testing.T, source *mocks.MockQuestionSource) *app.QuizController {
	t.Helper()

	quiz := app.NewQuizController(app.QuizControllerConfig{
		Source:       source,
		Logger:       discardLogger(),
		FetchTimeout: time.Second,
	})
	t.Cleanup(quiz.Close)

	return quiz
}

func play(t *testing.T, quiz Quiz, input string) string {
	t.Helper()

	var out bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, NewPlayer(quiz, strings.NewReader(input), &out, discardLogger()).Play(ctx))

	return out.String()
}

func TestPlayer_FullRound(t *testing.T) {
	source := mocks.NewMockQuestionSource(t)
	source.EXPECT().RandomQuestions(mock.Anything).Return(questions(), nil).Once()

	out := play(t, newQuiz(t, source), "y\n2\n2\nn\n")

	assert.Contains(t, out, "Start Quiz")
	assert.Contains(t, out, "Loading…")
	assert.Contains(t, out, "Question 1/2")
	assert.Contains(t, out, "Correct!")
	assert.Contains(t, out, "Wrong.")
	assert.Contains(t, out, "Quiz Completed")
	assert.Contains(t, out, "Your score: 1/2")
}

func TestPlayer_InvalidInputIsRetried(t *testing.T) {
	source := mocks.NewMockQuestionSource(t)
	source.EXPECT().RandomQuestions(mock.Anything).Return(questions(), nil).Once()

	out := play(t, newQuiz(t, source), "\nabc\n7\n2\n1\nn\n")

	assert.Equal(t, 2, strings.Count(out, "Please enter a number between 1 and 2."))
	assert.Contains(t, out, "Your score: 2/2")
}

func TestPlayer_TakeNewQuiz(t *testing.T) {
	source := mocks.NewMockQuestionSource(t)
	source.EXPECT().RandomQuestions(mock.Anything).Return(questions(), nil).Twice()

	out := play(t, newQuiz(t, source), "y\n1\n1\ny\n2\n1\nn\n")

	assert.Contains(t, out, "Your score: 1/2")
	assert.Contains(t, out, "Your score: 2/2")
	assert.Equal(t, 2, strings.Count(out, "Quiz Completed"))
}

func TestPlayer_FetchFailureThenRetry(t *testing.T) {
	source := mocks.NewMockQuestionSource(t)
	source.EXPECT().RandomQuestions(mock.Anything).Return(nil, errors.New("connection refused")).Once()
	source.EXPECT().RandomQuestions(mock.Anything).Return([]domain.Question{}, nil).Once()

	out := play(t, newQuiz(t, source), "y\ny\nn\n")

	assert.Contains(t, out, "Could not load questions")
	assert.Contains(t, out, "Your score: 0/0")
}

func TestPlayer_DeclineToStart(t *testing.T) {
	out := play(t, newQuiz(t, mocks.NewMockQuestionSource(t)), "n\n")

	assert.Contains(t, out, "Start Quiz")
	assert.NotContains(t, out, "Loading…")
}

func TestPlayer_EndOfInputMidQuiz(t *testing.T) {
	source := mocks.NewMockQuestionSource(t)
	source.EXPECT().RandomQuestions(mock.Anything).Return(questions(), nil).Once()

	out := play(t, newQuiz(t, source), "y\n1\n")

	assert.Contains(t, out, "Question 2/2")
	assert.NotContains(t, out, "Quiz Completed")
}

func TestPlayer_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewPlayer(newQuiz(t, mocks.NewMockQuestionSource(t)), strings.NewReader("y\n"), io.Discard, discardLogger()).Play(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
