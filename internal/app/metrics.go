package app

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jsamuelsen/tech-quiz-service/internal/platform/telemetry"
)

// Metrics records quiz activity. A nil *Metrics records nothing.
type Metrics struct {
	roundsStarted   metric.Int64Counter
	roundsCompleted metric.Int64Counter
	answers         metric.Int64Counter
	fetchFailures   metric.Int64Counter
	fetchDuration   metric.Float64Histogram
}

// NewMetrics creates the quiz instruments on the service meter.
// Instruments that fail to register are logged and left unset.
func NewMetrics(logger *slog.Logger) *Metrics {
	meter := telemetry.Meter()
	m := &Metrics{}

	var err error

	if m.roundsStarted, err = meter.Int64Counter("quiz.rounds.started",
		metric.WithDescription("Quiz rounds that began fetching questions")); err != nil {
		logger.Warn("registering metric", slog.String("metric", "quiz.rounds.started"), slog.Any("error", err))
	}

	if m.roundsCompleted, err = meter.Int64Counter("quiz.rounds.completed",
		metric.WithDescription("Quiz rounds answered to the end")); err != nil {
		logger.Warn("registering metric", slog.String("metric", "quiz.rounds.completed"), slog.Any("error", err))
	}

	if m.answers, err = meter.Int64Counter("quiz.answers",
		metric.WithDescription("Answers selected, by correctness")); err != nil {
		logger.Warn("registering metric", slog.String("metric", "quiz.answers"), slog.Any("error", err))
	}

	if m.fetchFailures, err = meter.Int64Counter("quiz.fetch.failures",
		metric.WithDescription("Question fetches that left a round failed")); err != nil {
		logger.Warn("registering metric", slog.String("metric", "quiz.fetch.failures"), slog.Any("error", err))
	}

	if m.fetchDuration, err = meter.Float64Histogram("quiz.fetch.duration",
		metric.WithDescription("Time from start to a settled fetch"),
		metric.WithUnit("s")); err != nil {
		logger.Warn("registering metric", slog.String("metric", "quiz.fetch.duration"), slog.Any("error", err))
	}

	return m
}

func (m *Metrics) roundStarted(ctx context.Context) {
	if m != nil && m.roundsStarted != nil {
		m.roundsStarted.Add(ctx, 1)
	}
}

func (m *Metrics) roundCompleted(ctx context.Context) {
	if m != nil && m.roundsCompleted != nil {
		m.roundsCompleted.Add(ctx, 1)
	}
}

func (m *Metrics) answerSelected(ctx context.Context, correct bool) {
	if m != nil && m.answers != nil {
		m.answers.Add(ctx, 1, metric.WithAttributes(attribute.Bool("correct", correct)))
	}
}

func (m *Metrics) fetchSettled(ctx context.Context, seconds float64, failed bool) {
	if m == nil {
		return
	}

	if m.fetchDuration != nil {
		m.fetchDuration.Record(ctx, seconds, metric.WithAttributes(attribute.Bool("failed", failed)))
	}

	if failed && m.fetchFailures != nil {
		m.fetchFailures.Add(ctx, 1)
	}
}
