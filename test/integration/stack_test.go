//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	adapterhttp "github.com/jsamuelsen/tech-quiz-service/internal/adapters/http"

	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/clients"
	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/clients/acl"
	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/tech-quiz-service/internal/app"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/config"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/logging"
	"github.com/jsamuelsen/tech-quiz-service/internal/ports"
)

// questionStub plays the question service. It serves whatever it was last
// told to and counts the requests it receives.
type questionStub struct {
	mu     sync.Mutex
	status int
	body   string
	delay  time.Duration
	path   string

	calls atomic.Int32
}

func (s *questionStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.calls.Add(1)

	s.mu.Lock()
	s.path = r.URL.Path
	status, body, delay := s.status, s.body, s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (s *questionStub) respond(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status, s.body = status, body
}

func (s *questionStub) lastPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.path
}

func (s *questionStub) slow(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.delay = delay
}

// serveQuestions makes the stub serve n questions whose first answer is
// the correct one.
func (s *questionStub) serveQuestions(n int) {
	s.respond(http.StatusOK, questionSet(n))
}

func questionSet(n int) string {
	parts := make([]string, n)
	for i := range n {
		parts[i] = fmt.Sprintf(`{"_id":"q%d","question":"Question %d?","answers":[`+
			`{"text":"right","isCorrect":true},{"text":"wrong","isCorrect":false}]}`, i+1, i+1)
	}

	return "[" + strings.Join(parts, ",") + "]"
}

// stack is the service wired as in cmd/service, served by httptest against
// a stubbed question service.
type stack struct {
	source   *questionStub
	sessions *app.SessionManager
	client   *http.Client

	sourceServer *httptest.Server
	server       *httptest.Server
}

// testConfig returns the default configuration with fast retries.
func testConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom("testdata/none", "")
	if err != nil {
		return nil, err
	}

	cfg.App.Environment = "test"
	cfg.Log.Level = "error"
	cfg.Client.Timeout = 2 * time.Second
	cfg.Client.Retry.MaxAttempts = 2
	cfg.Client.Retry.InitialInterval = 10 * time.Millisecond
	cfg.Client.Retry.MaxInterval = 100 * time.Millisecond
	cfg.Quiz.FetchTimeout = 3 * time.Second
	cfg.Server.RequestTimeout = 5 * time.Second

	return cfg, nil
}

func startStack(cfg *config.Config) (*stack, error) {
	source := &questionStub{}
	source.serveQuestions(3)

	sourceServer := httptest.NewServer(source)
	cfg.Services.Questions.BaseURL = sourceServer.URL

	if err := cfg.Validate(); err != nil {
		sourceServer.Close()
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  "json",
		Service: cfg.App.Name,
		Version: cfg.App.Version,
	}, io.Discard)

	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Services.Questions.BaseURL,
		ServiceName: cfg.Services.Questions.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      logger,
	})
	if err != nil {
		sourceServer.Close()
		return nil, fmt.Errorf("creating client: %w", err)
	}

	questions := acl.NewQuestionClient(acl.QuestionClientConfig{
		Client: httpClient,
		Path:   cfg.Services.Questions.Path,
		Logger: logger,
	})

	sessions := app.NewSessionManager(app.SessionManagerConfig{
		Source:        questions,
		Logger:        logger,
		FetchTimeout:  cfg.Quiz.FetchTimeout,
		SessionTTL:    cfg.Quiz.SessionTTL,
		SweepInterval: cfg.Quiz.SweepInterval,
		MaxSessions:   cfg.Quiz.MaxSessions,
	})

	registry := ports.NewHealthRegistry()
	_ = registry.RegisterOptional(questions)
	_ = registry.RegisterOptional(sessions)

	srv := adapterhttp.New(&cfg.Server, logger)
	adapterhttp.SetupRouter(srv.Engine(), adapterhttp.RouterConfig{
		Logger:         logger,
		ServiceName:    cfg.App.Name,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		HealthHandler:  handlers.NewHealthHandler(registry, handlers.NewBuildInfo("test", "test", "test")),
		QuizHandler:    handlers.NewQuizHandler(sessions),
		StreamHandler:  handlers.NewQuizStreamHandler(sessions, cfg.Server.AllowedOrigins),
		Timeout:        cfg.Server.RequestTimeout,
	})

	return &stack{
		source:       source,
		sessions:     sessions,
		client:       &http.Client{Timeout: 10 * time.Second},
		sourceServer: sourceServer,
		server:       httptest.NewServer(srv.Engine()),
	}, nil
}

func (s *stack) Close() {
	s.server.Close()
	s.sessions.CloseAll(context.Background())
	s.sourceServer.Close()
}

// request sends body as JSON when it is not nil.
func (s *stack) request(method, path string, body any) (int, []byte, error) {
	var reader io.Reader = http.NoBody

	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}

		reader = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, s.server.URL+path, reader)
	if err != nil {
		return 0, nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)

	return resp.StatusCode, raw, err
}

// quizBody decodes any quiz endpoint response: a QuizView, an AnswerResult
// or an error.
type quizBody struct {
	dto.QuizView

	Correct *bool            `json:"correct"`
	Quiz    *dto.QuizView    `json:"quiz"`
	Error   *dto.ErrorDetail `json:"error"`
}

func (b *quizBody) view() dto.QuizView {
	if b.Quiz != nil {
		return *b.Quiz
	}

	return b.QuizView
}

func decodeQuiz(raw []byte) (*quizBody, error) {
	var body quizBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", raw, err)
	}

	return &body, nil
}
