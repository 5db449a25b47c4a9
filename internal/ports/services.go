// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrUnavailable, etc.)
//   - Keep interfaces small and focused (Interface Segregation Principle)
package ports

import (
	"context"

	"github.com/jsamuelsen/tech-quiz-service/internal/domain"
)

// QuestionSource supplies the question set for one quiz round.
//
// Key considerations for implementations:
//   - Handle timeouts via context deadline
//   - Map transport and status failures to domain errors
//   - Translate external DTOs to domain.Question
type QuestionSource interface {
	// RandomQuestions returns a freshly drawn question set. An empty set is valid.
	// Returns domain.ErrUnavailable when the source cannot be reached and
	// domain.ErrValidation when it answers with unusable data.
	RandomQuestions(ctx context.Context) ([]domain.Question, error)
}
