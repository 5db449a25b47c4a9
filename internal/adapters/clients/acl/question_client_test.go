package acl

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/clients"
	"github.com/jsamuelsen/tech-quiz-service/internal/domain"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/config"
)

const questionsPath = "/api/questions/random"

// setupQuestionClient creates a QuestionClient with a test HTTP server.
func setupQuestionClient(t *testing.T, handler http.HandlerFunc) *QuestionClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewQuestionClient(QuestionClientConfig{
		Client: newHTTPClient(t, server.URL, 10),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func newHTTPClient(t *testing.T, baseURL string, maxFailures int) *clients.Client {
	t.Helper()

	client, err := clients.New(&clients.Config{
		ServiceName: "question-service",
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   maxFailures,
			Timeout:       30 * time.Second,
			HalfOpenLimit: 1,
		},
		Transport: config.TransportConfig{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
		},
	})
	require.NoError(t, err)

	return client
}

func writeBody(t *testing.T, w http.ResponseWriter, status int, body string) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_, err := io.WriteString(w, body)
	assert.NoError(t, err)
}

func TestNewQuestionClient_PanicsWithoutClient(t *testing.T) {
	assert.Panics(t, func() {
		NewQuestionClient(QuestionClientConfig{})
	})
}

func TestNewQuestionClient_DefaultPath(t *testing.T) {
	c := NewQuestionClient(QuestionClientConfig{Client: newHTTPClient(t, "http://questions.local", 1)})

	assert.Equal(t, config.DefaultQuestionsPath, c.path)
	assert.Equal(t, "question-service", c.Name())
}

func TestQuestionClient_RandomQuestions(t *testing.T) {
	c := setupQuestionClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, questionsPath, r.URL.Path)

		writeBody(t, w, http.StatusOK, `[
			{"_id":"q1","question":"What does GC stand for?","answers":[
				{"text":"Garbage collection","isCorrect":true},
				{"text":"Go compiler","isCorrect":false}
			]},
			{"_id":"q2","question":"Which keyword starts a goroutine?","answers":[
				{"text":"go","isCorrect":true},
				{"text":"async"}
			],"category":"ignored"}
		]`)
	})

	questions, err := c.RandomQuestions(context.Background())
	require.NoError(t, err)
	require.Len(t, questions, 2)

	assert.Equal(t, domain.Question{
		ID:   "q1",
		Text: "What does GC stand for?",
		Answers: []domain.Answer{
			{Text: "Garbage collection", IsCorrect: true},
			{Text: "Go compiler", IsCorrect: false},
		},
	}, questions[0])

	assert.Equal(t, "q2", questions[1].ID)
	assert.False(t, questions[1].Answers[1].IsCorrect, "missing isCorrect defaults to false")
}

func TestQuestionClient_RandomQuestions_EmptySet(t *testing.T) {
	c := setupQuestionClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(t, w, http.StatusOK, `[]`)
	})

	questions, err := c.RandomQuestions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, questions)
}

func TestQuestionClient_RandomQuestions_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"code":"BOOM","message":"db down"}}`, domain.IsUnavailable},
		{"rate limited", http.StatusTooManyRequests, `{}`, domain.IsUnavailable},
		{"not found", http.StatusNotFound, `{"message":"no such route"}`, domain.IsNotFound},
		{"malformed json", http.StatusOK, `[{"_id":`, domain.IsValidation},
		{"object instead of array", http.StatusOK, `{"_id":"q1"}`, domain.IsValidation},
		{"null body", http.StatusOK, `null`, domain.IsValidation},
		{"missing id", http.StatusOK, `[{"question":"Q","answers":[{"text":"a"}]}]`, domain.IsValidation},
		{"missing question text", http.StatusOK, `[{"_id":"q1","question":" ","answers":[{"text":"a"}]}]`, domain.IsValidation},
		{"no answers", http.StatusOK, `[{"_id":"q1","question":"Q","answers":[]}]`, domain.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setupQuestionClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeBody(t, w, tt.status, tt.body)
			})

			questions, err := c.RandomQuestions(context.Background())
			require.Error(t, err)
			assert.Nil(t, questions)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
		})
	}
}

func TestQuestionClient_RandomQuestions_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	c := NewQuestionClient(QuestionClientConfig{Client: newHTTPClient(t, baseURL, 10)})

	_, err := c.RandomQuestions(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
}

func TestQuestionClient_RandomQuestions_CircuitOpen(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	c := NewQuestionClient(QuestionClientConfig{Client: newHTTPClient(t, server.URL, 1)})

	_, err := c.RandomQuestions(context.Background())
	require.Error(t, err)

	_, err = c.RandomQuestions(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, int32(1), calls.Load())
}

func TestQuestionClient_RandomQuestions_HonorsContext(t *testing.T) {
	c := setupQuestionClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.RandomQuestions(ctx)
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
}

func TestQuestionClient_RandomQuestions_AttemptTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	client, err := clients.New(&clients.Config{
		ServiceName: "question-service",
		BaseURL:     server.URL,
		Timeout:     50 * time.Millisecond,
		Retry:       config.RetryConfig{MaxAttempts: 1},
	})
	require.NoError(t, err)

	c := NewQuestionClient(QuestionClientConfig{Client: client})

	_, err = c.RandomQuestions(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQuestionClient_Check(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		c := setupQuestionClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeBody(t, w, http.StatusOK, `[]`)
		})

		assert.NoError(t, c.Check(context.Background()))
	})

	t.Run("unhealthy status", func(t *testing.T) {
		c := setupQuestionClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeBody(t, w, http.StatusNotFound, `{}`)
		})

		err := c.Check(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
	})

	t.Run("circuit open", func(t *testing.T) {
		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(server.Close)

		c := NewQuestionClient(QuestionClientConfig{Client: newHTTPClient(t, server.URL, 1)})
		_, _ = c.RandomQuestions(context.Background())

		err := c.Check(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "circuit breaker open")
		assert.Equal(t, int32(1), calls.Load())
	})
}
