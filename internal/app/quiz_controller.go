package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/tech-quiz-service/internal/domain"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/logging"
	"github.com/jsamuelsen/tech-quiz-service/internal/ports"
)

// DefaultFetchTimeout bounds a question fetch when no timeout is configured.
const DefaultFetchTimeout = 10 * time.Second

// ErrQuizClosed is returned by a controller that has been closed.
var ErrQuizClosed = fmt.Errorf("%w: quiz closed", domain.ErrNotFound)

// Failure reasons shown to the player when a round cannot be loaded.
const (
	reasonTimeout     = "question source timed out"
	reasonUnavailable = "question source unavailable"
	reasonInvalid     = "question source returned invalid questions"
)

// QuizControllerConfig configures a QuizController.
type QuizControllerConfig struct {
	// Source supplies questions. Required.
	Source ports.QuestionSource

	Logger       *slog.Logger
	FetchTimeout time.Duration
	Metrics      *Metrics

	// Executor runs the load pipeline. One is created when nil.
	Executor *Executor

	// Now is the clock for activity tracking. Defaults to time.Now.
	Now func() time.Time
}

// QuizController owns one quiz session and serializes every action on it.
//
// Start issues the question fetch on its own goroutine, detached from the
// caller's cancellation and bounded by the fetch timeout. The result is applied
// only if the session is still loading the same round; anything else is stale
// and dropped.
type QuizController struct {
	source       ports.QuestionSource
	exec         *Executor
	logger       *slog.Logger
	metrics      *Metrics
	fetchTimeout time.Duration
	now          func() time.Time

	mu          sync.Mutex
	session     *domain.Session
	closed      bool
	lastActive  time.Time
	cancelFetch context.CancelFunc

	// settled is closed when the pending round leaves StateLoading.
	settled  chan struct{}
	fetchErr error

	subscribers map[uint64]*subscriber
	nextSubID   uint64

	fetches sync.WaitGroup
}

type subscriber struct {
	ch   chan domain.Snapshot
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// NewQuizController creates a controller in StateNotStarted.
// It panics if cfg.Source is nil.
func NewQuizController(cfg QuizControllerConfig) *QuizController {
	if cfg.Source == nil {
		panic("app: QuizController requires a question source")
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	logger := logging.Component(cfg.Logger, "app.QuizController")

	if cfg.Executor == nil {
		cfg.Executor = NewExecutor(logger)
	}

	return &QuizController{
		source:       cfg.Source,
		exec:         cfg.Executor,
		logger:       logger,
		metrics:      cfg.Metrics,
		fetchTimeout: cfg.FetchTimeout,
		now:          cfg.Now,
		session:      domain.NewSession(),
		lastActive:   cfg.Now(),
		subscribers:  make(map[uint64]*subscriber),
	}
}

// Start begins a new round and returns the loading snapshot.
//
// From NotStarted, Completed or Failed it discards the previous round and
// fetches a new question set. While a fetch is pending it changes nothing.
// While questions are being answered it returns an InvalidActionError.
func (c *QuizController) Start(ctx context.Context) (domain.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.Snapshot{}, ErrQuizClosed
	}

	c.lastActive = c.now()

	gen, fetch, err := c.session.Begin()
	if err != nil {
		return c.session.Snapshot(), err
	}

	snap := c.session.Snapshot()
	if !fetch {
		return snap, nil
	}

	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	c.cancelFetch = cancel
	c.settled = make(chan struct{})
	c.fetchErr = nil

	c.metrics.roundStarted(ctx)
	c.publishLocked(snap)

	c.logger.DebugContext(ctx, "round started", slog.Uint64("generation", gen))

	c.fetches.Add(1)

	go c.load(fetchCtx, cancel, gen)

	return snap, nil
}

func (c *QuizController) load(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer c.fetches.Done()
	defer cancel()

	start := time.Now()

	_, err := Execute(ctx, c.exec, c.loadOperation(), gen)
	if err == nil {
		c.metrics.fetchSettled(ctx, time.Since(start).Seconds(), false)
		return
	}

	if errors.Is(err, domain.ErrStaleResult) {
		c.logger.DebugContext(ctx, "dropping stale fetch result", slog.Uint64("generation", gen))
		return
	}

	reason := failureReason(ctx, err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.session.Fail(gen, reason) != nil {
		return
	}

	c.fetchErr = domain.NewFetchFailedError(reason, err)
	c.metrics.fetchSettled(ctx, time.Since(start).Seconds(), true)
	c.logger.WarnContext(ctx, "question fetch failed",
		slog.Uint64("generation", gen),
		slog.String("reason", reason),
		slog.Any("error", err),
	)

	c.settleLocked()
}

// loadOperation fetches, verifies and installs the question set for a round.
func (c *QuizController) loadOperation() Operation[uint64, []domain.Question, []domain.Question, domain.Snapshot] {
	return Operation[uint64, []domain.Question, []domain.Question, domain.Snapshot]{
		Name: "load_questions",
		Validate: func(_ context.Context, gen uint64) error {
			c.mu.Lock()
			defer c.mu.Unlock()

			if c.closed || c.session.State() != domain.StateLoading || c.session.Generation() != gen {
				return domain.ErrStaleResult
			}

			return nil
		},
		Perform: func(ctx context.Context, _ uint64) ([]domain.Question, error) {
			return c.source.RandomQuestions(ctx)
		},
		Verify: func(_ context.Context, _ uint64, questions []domain.Question) ([]domain.Question, error) {
			if err := domain.ValidateQuestions(questions); err != nil {
				return nil, err
			}

			return questions, nil
		},
		Archive: func(ctx context.Context, gen uint64, questions []domain.Question) error {
			c.mu.Lock()
			defer c.mu.Unlock()

			if c.closed {
				return domain.ErrStaleResult
			}

			if err := c.session.Load(gen, questions); err != nil {
				return err
			}

			if c.session.State() == domain.StateCompleted {
				c.metrics.roundCompleted(ctx)
			}

			c.logger.DebugContext(ctx, "questions loaded",
				slog.Uint64("generation", gen),
				slog.Int("count", len(questions)),
			)

			c.settleLocked()

			return nil
		},
		Respond: func(_ context.Context, _ uint64, _ []domain.Question) (domain.Snapshot, error) {
			return c.Snapshot(), nil
		},
	}
}

func failureReason(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		return reasonTimeout
	case domain.IsValidation(err):
		return reasonInvalid
	default:
		return reasonUnavailable
	}
}

// settleLocked publishes the settled round and releases Await callers.
func (c *QuizController) settleLocked() {
	c.publishLocked(c.session.Snapshot())

	if c.settled != nil {
		close(c.settled)
		c.settled = nil
	}

	c.cancelFetch = nil
}

// SelectAnswer answers the current question with the 0-based index and
// reports whether it was correct. Outside StateInProgress, or with an index
// out of range, the session is left unchanged and an error is returned.
func (c *QuizController) SelectAnswer(ctx context.Context, index int) (bool, domain.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, domain.Snapshot{}, ErrQuizClosed
	}

	c.lastActive = c.now()

	correct, err := c.session.Answer(index)
	if err != nil {
		return false, c.session.Snapshot(), err
	}

	snap := c.session.Snapshot()

	c.metrics.answerSelected(ctx, correct)

	if snap.State == domain.StateCompleted {
		c.metrics.roundCompleted(ctx)
		logging.FromContext(ctx).InfoContext(ctx, "quiz completed", slog.String("score", snap.ScoreText()))
	}

	c.publishLocked(snap)

	return correct, snap, nil
}

// Snapshot returns the current view of the session.
func (c *QuizController) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session.Snapshot()
}

// Await blocks until the pending fetch settles or ctx is done, then returns
// the snapshot. A round that ended in StateFailed also returns its
// FetchFailedError. Without a pending fetch it returns immediately.
func (c *QuizController) Await(ctx context.Context) (domain.Snapshot, error) {
	c.mu.Lock()
	settled := c.settled
	c.mu.Unlock()

	if settled != nil {
		select {
		case <-settled:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.session.Snapshot()
	if snap.State == domain.StateFailed {
		return snap, c.fetchErr
	}

	return snap, nil
}

// Subscribe returns a channel of snapshots, starting with the current one.
// A slow reader only ever sees the latest snapshot. The channel is closed by
// the returned cancel func or when the controller closes.
func (c *QuizController) Subscribe() (<-chan domain.Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub := &subscriber{ch: make(chan domain.Snapshot, 1)}
	sub.ch <- c.session.Snapshot()

	if c.closed {
		sub.close()
		return sub.ch, func() {}
	}

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = sub

	cancel := func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()

		sub.close()
	}

	return sub.ch, cancel
}

// publishLocked replaces any unread snapshot with snap.
func (c *QuizController) publishLocked(snap domain.Snapshot) {
	for _, sub := range c.subscribers {
		select {
		case <-sub.ch:
		default:
		}

		sub.ch <- snap
	}
}

// Idle reports whether nothing has touched the quiz for ttl and nobody is
// subscribed to it.
func (c *QuizController) Idle(now time.Time, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.subscribers) == 0 && now.Sub(c.lastActive) > ttl
}

// Close cancels a pending fetch, closes subscriber channels and waits for the
// fetch goroutine to return. Later actions fail with ErrQuizClosed.
func (c *QuizController) Close() {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return
	}

	c.closed = true

	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}

	if c.settled != nil {
		close(c.settled)
		c.settled = nil
	}

	for id, sub := range c.subscribers {
		delete(c.subscribers, id)
		sub.close()
	}

	c.mu.Unlock()

	c.fetches.Wait()
}
