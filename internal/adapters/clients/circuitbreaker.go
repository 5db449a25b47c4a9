package clients

import (
	"sync"
	"time"

	"github.com/jsamuelsen/tech-quiz-service/internal/platform/config"
)

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	// CircuitClosed lets every request through.
	CircuitClosed CircuitState = iota

	// CircuitOpen blocks requests until the open timeout elapses.
	CircuitOpen

	// CircuitHalfOpen lets a limited number of probe requests through.
	CircuitHalfOpen
)

// String returns a human-readable name for the state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops calling a downstream service that keeps failing.
//
// State transitions:
//   - Closed → Open: after MaxFailures consecutive failures
//   - Open → HalfOpen: on the first Allow after Timeout has passed
//   - HalfOpen → Closed: after HalfOpenLimit consecutive successes
//   - HalfOpen → Open: on any failure
type CircuitBreaker struct {
	mu       sync.Mutex
	cfg      config.CircuitBreakerConfig
	state    CircuitState
	failures int
	// successes and inFlight only count while half-open.
	successes   int
	inFlight    int
	lastFailure time.Time

	onStateChange func(from, to CircuitState)
	now           func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(cfg config.CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 1
	}

	if cfg.HalfOpenLimit < 1 {
		cfg.HalfOpenLimit = 1
	}

	return &CircuitBreaker{
		cfg:   cfg,
		state: CircuitClosed,
		now:   time.Now,
	}
}

// OnStateChange registers fn to be called after every transition.
// fn runs on the goroutine that caused the transition, outside the breaker's lock.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to CircuitState)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.onStateChange = fn
}

// Allow reports whether a request may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()

	var (
		allowed bool
		from    = cb.state
	)

	switch cb.state {
	case CircuitClosed:
		allowed = true
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailure) >= cb.cfg.Timeout {
			cb.setState(CircuitHalfOpen)
			cb.inFlight = 1
			allowed = true
		}
	case CircuitHalfOpen:
		if cb.inFlight < cb.cfg.HalfOpenLimit {
			cb.inFlight++
			allowed = true
		}
	}

	cb.unlockAndNotify(from)

	return allowed
}

// RecordSuccess records a successful request.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	from := cb.state

	switch cb.state {
	case CircuitClosed:
		cb.failures = 0
	case CircuitHalfOpen:
		cb.inFlight--
		cb.successes++

		if cb.successes >= cb.cfg.HalfOpenLimit {
			cb.setState(CircuitClosed)
		}
	case CircuitOpen:
	}

	cb.unlockAndNotify(from)
}

// RecordFailure records a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	from := cb.state
	cb.lastFailure = cb.now()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.cfg.MaxFailures {
			cb.setState(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.inFlight--
		cb.setState(CircuitOpen)
	case CircuitOpen:
	}

	cb.unlockAndNotify(from)
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// setState must be called with the lock held.
func (cb *CircuitBreaker) setState(to CircuitState) {
	cb.state = to
	cb.failures = 0
	cb.successes = 0

	if to != CircuitHalfOpen {
		cb.inFlight = 0
	}
}

func (cb *CircuitBreaker) unlockAndNotify(from CircuitState) {
	to := cb.state
	fn := cb.onStateChange
	cb.mu.Unlock()

	if fn != nil && from != to {
		fn(from, to)
	}
}
