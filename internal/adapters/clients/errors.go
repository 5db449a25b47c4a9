// Package clients provides HTTP client adapters for downstream services.
package clients

import (
	"errors"
	"fmt"
)

// Client errors are infrastructure failures. Callers translate them into
// domain errors; see the acl package.
var (
	// ErrCircuitOpen is returned when the circuit breaker is blocking requests.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last failure once every attempt has been used.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// StatusError reports a retryable status the downstream service kept returning.
type StatusError struct {
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("server error: HTTP %d", e.StatusCode)
}
