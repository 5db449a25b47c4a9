package domain

import (
	"errors"
	"fmt"
)

// State is the lifecycle phase of a quiz session.
type State int

const (
	// StateNotStarted is the initial state; only start is accepted.
	StateNotStarted State = iota

	// StateLoading means a question fetch is pending; no user action is accepted.
	StateLoading

	// StateInProgress means questions are being answered.
	StateInProgress

	// StateCompleted means every question has been answered; start begins a new round.
	StateCompleted

	// StateFailed means the last fetch failed; start retries with a fresh round.
	StateFailed
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateLoading:
		return "loading"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Action names a user action on a session.
type Action string

const (
	ActionStart        Action = "start"
	ActionSelectAnswer Action = "select_answer"
)

// ErrStaleResult is returned when a fetch result belongs to a round that has
// since been restarted or abandoned.
var ErrStaleResult = errors.New("stale fetch result")

// Session is the quiz state machine.
// It is not safe for concurrent use; the owning controller serializes access.
type Session struct {
	state      State
	generation uint64
	questions  []Question
	current    int
	score      int
	failure    string
}

// NewSession creates a session in StateNotStarted.
func NewSession() *Session {
	return &Session{state: StateNotStarted}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Generation identifies the current round. Every accepted start increments it.
func (s *Session) Generation() uint64 {
	return s.generation
}

// Begin discards the previous round and enters StateLoading.
//
// It returns the new generation and true when a fetch should be issued.
// While a fetch is already pending it changes nothing and returns false.
// Starting while questions are being answered is an InvalidActionError.
func (s *Session) Begin() (uint64, bool, error) {
	switch s.state {
	case StateLoading:
		return s.generation, false, nil
	case StateInProgress:
		return s.generation, false, NewInvalidActionError(ActionStart, s.state)
	case StateNotStarted, StateCompleted, StateFailed:
	}

	s.generation++
	s.state = StateLoading
	s.questions = nil
	s.current = 0
	s.score = 0
	s.failure = ""

	return s.generation, true, nil
}

// Load installs the fetched questions for round gen.
// An empty set completes the round immediately with a 0/0 score.
func (s *Session) Load(gen uint64, questions []Question) error {
	if s.state != StateLoading || gen != s.generation {
		return ErrStaleResult
	}

	s.questions = CloneQuestions(questions)
	s.current = 0
	s.score = 0

	if len(s.questions) == 0 {
		s.state = StateCompleted
	} else {
		s.state = StateInProgress
	}

	return nil
}

// Fail records a failed fetch for round gen.
func (s *Session) Fail(gen uint64, reason string) error {
	if s.state != StateLoading || gen != s.generation {
		return ErrStaleResult
	}

	s.state = StateFailed
	s.failure = reason

	return nil
}

// Answer selects answer index for the current question and advances.
// It reports whether the selected answer was correct.
func (s *Session) Answer(index int) (bool, error) {
	if s.state != StateInProgress {
		return false, NewInvalidActionError(ActionSelectAnswer, s.state)
	}

	q := s.questions[s.current]
	if index < 0 || index >= len(q.Answers) {
		return false, NewInvalidIndexError(index, len(q.Answers))
	}

	correct := q.Answers[index].IsCorrect
	if correct {
		s.score++
	}

	s.current++
	if s.current == len(s.questions) {
		s.state = StateCompleted
	}

	return correct, nil
}

// Snapshot returns a read-only copy of the session.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		State:      s.state,
		Generation: s.generation,
		Index:      s.current,
		Total:      len(s.questions),
		Score:      s.score,
		Failure:    s.failure,
	}

	if s.state == StateInProgress {
		q := s.questions[s.current].Clone()
		snap.Question = &q
	}

	return snap
}

// Snapshot is what a presentation layer renders.
type Snapshot struct {
	State      State
	Generation uint64

	// Question is set only while the quiz is in progress.
	Question *Question

	// Index is the 0-based position of the current question.
	Index int

	Total int
	Score int

	// Failure explains a StateFailed snapshot.
	Failure string
}

// Loading reports whether a fetch is pending.
func (s Snapshot) Loading() bool {
	return s.State == StateLoading
}

// ScoreText formats the score as "<score>/<total>".
func (s Snapshot) ScoreText() string {
	return fmt.Sprintf("%d/%d", s.Score, s.Total)
}
