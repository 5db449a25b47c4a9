package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/tech-quiz-service/internal/platform/logging"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/telemetry"
)

// Operations run as Validate → Perform → Verify → Archive → Respond.
// Nothing is archived into a quiz session until the performed result has been
// verified, so a failed or malformed fetch never leaves a half-loaded round.

// ExecutionStep names a step of an Operation.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError wraps an error with the step where it occurred.
type ExecutionError struct {
	Step    ExecutionStep
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Step, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s failed: %s", e.Step, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

func stepError(step ExecutionStep, message string, cause error) error {
	return &ExecutionError{Step: step, Message: message, Cause: cause}
}

// Executor runs operations with step logging and one span per operation.
type Executor struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// NewExecutor creates an executor. logger is used when the context carries none.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger, tracer: telemetry.Tracer()}
}

// Operation defines the steps of one use case. Nil steps are skipped.
type Operation[I, P, V, O any] struct {
	// Name identifies the operation in logs and spans.
	Name string

	// Validate checks preconditions before any side effect.
	Validate func(ctx context.Context, input I) error

	// Perform does the work, typically a call through a port.
	Perform func(ctx context.Context, input I) (P, error)

	// Verify checks what Perform returned.
	Verify func(ctx context.Context, input I, performed P) (V, error)

	// Archive commits the verified result.
	Archive func(ctx context.Context, input I, verified V) error

	// Respond shapes the result for the caller.
	Respond func(ctx context.Context, input I, verified V) (O, error)
}

type executionContext[I, P, V, O any] struct {
	logger *slog.Logger
	op     Operation[I, P, V, O]
	input  I
}

func (e *executionContext[I, P, V, O]) runValidate(ctx context.Context) error {
	if e.op.Validate == nil {
		return nil
	}

	if err := e.op.Validate(ctx, e.input); err != nil {
		e.logger.DebugContext(ctx, "validation failed", slog.Any("error", err))
		return stepError(StepValidate, "precondition failed", err)
	}

	return nil
}

func (e *executionContext[I, P, V, O]) runPerform(ctx context.Context) (P, error) {
	var zero P

	if e.op.Perform == nil {
		return zero, nil
	}

	e.logger.DebugContext(ctx, "performing operation")

	performed, err := e.op.Perform(ctx, e.input)
	if err != nil {
		e.logger.WarnContext(ctx, "perform failed", slog.Any("error", err))
		return zero, stepError(StepPerform, "operation failed", err)
	}

	return performed, nil
}

func (e *executionContext[I, P, V, O]) runVerify(ctx context.Context, performed P) (V, error) {
	var zero V

	if e.op.Verify == nil {
		// Without a verifier the performed value must already be a V.
		if v, ok := any(performed).(V); ok {
			return v, nil
		}

		return zero, nil
	}

	verified, err := e.op.Verify(ctx, e.input, performed)
	if err != nil {
		e.logger.WarnContext(ctx, "verification failed", slog.Any("error", err))
		return zero, stepError(StepVerify, "verification failed", err)
	}

	return verified, nil
}

func (e *executionContext[I, P, V, O]) runArchive(ctx context.Context, verified V) error {
	if e.op.Archive == nil {
		return nil
	}

	if err := e.op.Archive(ctx, e.input, verified); err != nil {
		e.logger.DebugContext(ctx, "archive failed", slog.Any("error", err))
		return stepError(StepArchive, "result not applied", err)
	}

	return nil
}

func (e *executionContext[I, P, V, O]) runRespond(ctx context.Context, verified V) (O, error) {
	var zero O

	if e.op.Respond == nil {
		return zero, nil
	}

	result, err := e.op.Respond(ctx, e.input, verified)
	if err != nil {
		return zero, stepError(StepRespond, "response failed", err)
	}

	return result, nil
}

// Execute runs op for input through every step, stopping at the first error.
func Execute[I, P, V, O any](ctx context.Context, exec *Executor, op Operation[I, P, V, O], input I) (result O, err error) {
	logger := exec.logger
	if logging.HasLogger(ctx) {
		logger = logging.FromContext(ctx)
	}

	logger = logger.With(slog.String("operation", op.Name))

	ctx, span := exec.tracer.Start(ctx, "app."+op.Name,
		trace.WithAttributes(attribute.String("operation", op.Name)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
	}()

	start := time.Now()
	ec := &executionContext[I, P, V, O]{logger: logger, op: op, input: input}

	if err = ec.runValidate(ctx); err != nil {
		return result, err
	}

	performed, err := ec.runPerform(ctx)
	if err != nil {
		return result, err
	}

	verified, err := ec.runVerify(ctx, performed)
	if err != nil {
		return result, err
	}

	if err = ec.runArchive(ctx, verified); err != nil {
		return result, err
	}

	result, err = ec.runRespond(ctx, verified)
	if err != nil {
		return result, err
	}

	logger.DebugContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return result, nil
}

// GetExecutionStep returns the step an execution error occurred in.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}
