// Package domain contains business logic types and errors.
// Domain errors represent business-level failures, NOT HTTP errors.
// They are infrastructure-agnostic and can be mapped to HTTP/gRPC/etc by adapters.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates business rule validation failed.
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable indicates a required dependency is unavailable.
	ErrUnavailable = errors.New("unavailable")
)

// Quiz sentinels. Each typed quiz error below also matches one of the generic
// sentinels above so adapters can map them without knowing the quiz rules.
var (
	// ErrInvalidIndex indicates an answer index outside the current question's answers.
	ErrInvalidIndex = errors.New("invalid answer index")

	// ErrInvalidActionForState indicates an action the quiz does not accept in its current state.
	ErrInvalidActionForState = errors.New("invalid action for state")

	// ErrFetchFailed indicates the question source could not deliver a usable question set.
	ErrFetchFailed = errors.New("question fetch failed")
)

// NotFoundError provides context for not found errors.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a not found error with context.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError provides context for validation errors.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error with context.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue creates a validation error including the invalid value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// UnavailableError provides context for unavailable errors.
type UnavailableError struct {
	Service string
	Reason  string
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("service %q unavailable: %s", e.Service, e.Reason)
	}

	return fmt.Sprintf("service %q unavailable", e.Service)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *UnavailableError) Unwrap() error {
	return ErrUnavailable
}

// NewUnavailableError creates an unavailable error with context.
func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

// InvalidIndexError reports an answer index outside [0, Count).
type InvalidIndexError struct {
	Index int
	Count int
}

// Error implements the error interface.
func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("answer index %d out of range: question has %d answers", e.Index, e.Count)
}

// Unwrap matches both ErrInvalidIndex and ErrValidation.
func (e *InvalidIndexError) Unwrap() []error {
	return []error{ErrInvalidIndex, ErrValidation}
}

// NewInvalidIndexError creates an invalid index error.
func NewInvalidIndexError(index, count int) error {
	return &InvalidIndexError{Index: index, Count: count}
}

// InvalidActionError reports an action attempted in a state that does not accept it.
type InvalidActionError struct {
	Action Action
	State  State
}

// Error implements the error interface.
func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("action %q not allowed while quiz is %s", e.Action, e.State)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *InvalidActionError) Unwrap() error {
	return ErrInvalidActionForState
}

// NewInvalidActionError creates an invalid action error.
func NewInvalidActionError(action Action, state State) error {
	return &InvalidActionError{Action: action, State: state}
}

// FetchFailedError describes why a question set could not be loaded.
type FetchFailedError struct {
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *FetchFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("question fetch failed: %s: %v", e.Reason, e.Cause)
	}

	return "question fetch failed: " + e.Reason
}

// Unwrap matches ErrFetchFailed and whatever the cause matches.
func (e *FetchFailedError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrFetchFailed}
	}

	return []error{ErrFetchFailed, e.Cause}
}

// NewFetchFailedError creates a fetch failed error.
func NewFetchFailedError(reason string, cause error) error {
	return &FetchFailedError{Reason: reason, Cause: cause}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnavailable checks if an error is an unavailable error.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsInvalidIndex checks if an error is an invalid answer index error.
func IsInvalidIndex(err error) bool {
	return errors.Is(err, ErrInvalidIndex)
}

// IsInvalidAction checks if an error is an invalid action for state error.
func IsInvalidAction(err error) bool {
	return errors.Is(err, ErrInvalidActionForState)
}

// IsFetchFailed checks if an error is a question fetch failure.
func IsFetchFailed(err error) bool {
	return errors.Is(err, ErrFetchFailed)
}
