package app

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/jsamuelsen/tech-quiz-service/internal/domain"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/logging"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/telemetry"
	"github.com/jsamuelsen/tech-quiz-service/internal/ports"
)

const (
	defaultSessionTTL    = 30 * time.Minute
	defaultSweepInterval = time.Minute
	defaultMaxSessions   = 1000

	// closeWorkers bounds how many controllers are closed at once.
	closeWorkers = 8
)

// SessionManagerConfig configures a SessionManager.
type SessionManagerConfig struct {
	// Source is shared by every quiz. Required.
	Source ports.QuestionSource

	Logger        *slog.Logger
	FetchTimeout  time.Duration
	SessionTTL    time.Duration
	SweepInterval time.Duration
	MaxSessions   int

	// Now and NewID are overridable for testing.
	Now   func() time.Time
	NewID func() string
}

// SessionManager holds the quizzes served over HTTP, keyed by ID, and evicts
// the ones nobody has touched for the session TTL.
type SessionManager struct {
	cfg     SessionManagerConfig
	base    *slog.Logger
	logger  *slog.Logger
	metrics *Metrics
	exec    *Executor

	mu       sync.RWMutex
	sessions map[string]*QuizController
}

// NewSessionManager creates an empty manager. It panics if cfg.Source is nil.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	if cfg.Source == nil {
		panic("app: SessionManager requires a question source")
	}

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = defaultMaxSessions
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	base := cfg.Logger
	if base == nil {
		base = slog.Default()
	}

	logger := logging.Component(base, "app.SessionManager")

	m := &SessionManager{
		cfg:      cfg,
		base:     base,
		logger:   logger,
		metrics:  NewMetrics(logger),
		exec:     NewExecutor(logger),
		sessions: make(map[string]*QuizController),
	}

	if _, err := telemetry.Meter().Int64ObservableGauge("quiz.sessions.active",
		metric.WithDescription("Quiz sessions currently held"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(m.Len()))
			return nil
		}),
	); err != nil {
		logger.Warn("registering metric", slog.String("metric", "quiz.sessions.active"), slog.Any("error", err))
	}

	return m
}

// Create registers a new quiz in StateNotStarted and returns its ID.
// It fails with an UnavailableError once MaxSessions quizzes are held.
func (m *SessionManager) Create(ctx context.Context) (string, *QuizController, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.cfg.MaxSessions {
		return "", nil, domain.NewUnavailableError("quiz", "session limit of "+strconv.Itoa(m.cfg.MaxSessions)+" reached")
	}

	id := m.cfg.NewID()

	ctrl := NewQuizController(QuizControllerConfig{
		Source:       m.cfg.Source,
		Logger:       m.base.With(slog.String("quiz_id", id)),
		FetchTimeout: m.cfg.FetchTimeout,
		Metrics:      m.metrics,
		Executor:     m.exec,
		Now:          m.cfg.Now,
	})

	m.sessions[id] = ctrl

	logging.FromContext(ctx).InfoContext(ctx, "quiz created", slog.String("quiz_id", id))

	return id, ctrl, nil
}

// Get returns the quiz with id or a NotFoundError.
func (m *SessionManager) Get(id string) (*QuizController, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ctrl, ok := m.sessions[id]
	if !ok {
		return nil, domain.NewNotFoundError("quiz", id)
	}

	return ctrl, nil
}

// Delete closes and removes the quiz with id.
func (m *SessionManager) Delete(id string) error {
	m.mu.Lock()
	ctrl, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return domain.NewNotFoundError("quiz", id)
	}

	ctrl.Close()

	return nil
}

// Len returns the number of quizzes held.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

// Sweep closes and removes quizzes idle for longer than the session TTL.
// It returns how many were evicted.
func (m *SessionManager) Sweep(ctx context.Context, now time.Time) int {
	m.mu.Lock()

	var expired []*QuizController

	for id, ctrl := range m.sessions {
		if ctrl.Idle(now, m.cfg.SessionTTL) {
			expired = append(expired, ctrl)
			delete(m.sessions, id)
		}
	}

	m.mu.Unlock()

	closeAll(ctx, expired)

	if len(expired) > 0 {
		m.logger.InfoContext(ctx, "evicted idle quizzes", slog.Int("count", len(expired)))
	}

	return len(expired)
}

// Run sweeps idle quizzes every SweepInterval until ctx is done, then closes
// every remaining quiz.
func (m *SessionManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.CloseAll(ctx)
			return nil
		case <-ticker.C:
			m.Sweep(ctx, m.cfg.Now())
		}
	}
}

// CloseAll closes and removes every quiz.
func (m *SessionManager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	all := make([]*QuizController, 0, len(m.sessions))

	for id, ctrl := range m.sessions {
		all = append(all, ctrl)
		delete(m.sessions, id)
	}

	m.mu.Unlock()

	closeAll(ctx, all)
}

// closeAll closes every controller even if ctx is already done.
func closeAll(ctx context.Context, ctrls []*QuizController) {
	_ = FanOut(context.WithoutCancel(ctx), closeWorkers, ctrls, func(_ context.Context, c *QuizController) error {
		c.Close()
		return nil
	})
}

// Name implements ports.HealthChecker.
func (m *SessionManager) Name() string {
	return "quiz-sessions"
}

// Check implements ports.HealthChecker. It fails once the session limit is
// reached, since new quizzes can no longer be created.
func (m *SessionManager) Check(_ context.Context) error {
	if n := m.Len(); n >= m.cfg.MaxSessions {
		return domain.NewUnavailableError("quiz", "session limit of "+strconv.Itoa(m.cfg.MaxSessions)+" reached")
	}

	return nil
}
