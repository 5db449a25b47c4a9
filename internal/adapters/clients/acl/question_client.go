package acl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/clients"
	"github.com/jsamuelsen/tech-quiz-service/internal/domain"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/config"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/logging"
)

const operationRandomQuestions = "fetch random questions"

// QuestionClientConfig configures a QuestionClient.
type QuestionClientConfig struct {
	// Client is the HTTP client for the question service. Required.
	Client *clients.Client

	// Path of the random question set endpoint. Defaults to config.DefaultQuestionsPath.
	Path string

	Logger *slog.Logger
}

// QuestionClient implements ports.QuestionSource and ports.HealthChecker
// against the question service's random question endpoint.
type QuestionClient struct {
	BaseAdapter

	path   string
	logger *slog.Logger
}

// NewQuestionClient creates a question client. It panics if cfg.Client is nil.
func NewQuestionClient(cfg QuestionClientConfig) *QuestionClient {
	if cfg.Client == nil {
		panic("QuestionClient: Client is required")
	}

	if cfg.Path == "" {
		cfg.Path = config.DefaultQuestionsPath
	}

	return &QuestionClient{
		BaseAdapter: NewBaseAdapter(cfg.Client, cfg.Client.ServiceName()),
		path:        cfg.Path,
		logger:      logging.Component(cfg.Logger, "acl.QuestionClient"),
	}
}

// questionDTO is one element of the question service's response array.
type questionDTO struct {
	ID       string      `json:"_id"`
	Question string      `json:"question"`
	Answers  []answerDTO `json:"answers"`
}

type answerDTO struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// RandomQuestions fetches a freshly drawn question set.
func (c *QuestionClient) RandomQuestions(ctx context.Context) ([]domain.Question, error) {
	c.logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", c.path))

	body, err := c.Get(ctx, c.path, operationRandomQuestions)
	if err != nil {
		return nil, err
	}

	external, err := DecodeResponse[[]questionDTO](body)
	if err != nil {
		return nil, domain.NewValidationError("body", err.Error())
	}

	if *external == nil {
		return nil, domain.NewValidationError("body", "expected a question array")
	}

	questions, err := TranslateSlice(*external, translateQuestion)
	if err != nil {
		return nil, err
	}

	c.logger.Log(ctx, logging.LevelTrace, "translated question set", slog.Int("count", len(questions)))

	return questions, nil
}

func translateQuestion(ext *questionDTO) (domain.Question, error) {
	answers := make([]domain.Answer, len(ext.Answers))
	for i, a := range ext.Answers {
		answers[i] = domain.Answer{Text: a.Text, IsCorrect: a.IsCorrect}
	}

	q := domain.Question{ID: ext.ID, Text: ext.Question, Answers: answers}

	if err := ValidateRequired(ext.ID, "_id"); err != nil {
		return domain.Question{}, err
	}

	if err := q.Validate(); err != nil {
		return domain.Question{}, err
	}

	return q, nil
}

// Name implements ports.HealthChecker.
func (c *QuestionClient) Name() string {
	return c.ServiceName()
}

// Check implements ports.HealthChecker. It reports the open circuit without a
// round trip, and otherwise requires the endpoint to answer 2xx.
func (c *QuestionClient) Check(ctx context.Context) error {
	if c.client.CircuitState() == clients.CircuitOpen {
		return fmt.Errorf("%s: circuit breaker open", c.ServiceName())
	}

	resp, err := c.client.Get(ctx, c.path)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", c.ServiceName(), resp.StatusCode)
	}

	return nil
}
