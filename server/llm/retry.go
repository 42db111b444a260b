package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExhaustedError reports that every attempt failed with a retryable error.
// It is distinct from a ClassifiedError so callers can tell "the service is
// degraded" apart from "fix your input or credentials".
type ExhaustedError struct {
	Attempts int
	Last     *ClassifiedError
}

// Error returns a formatted error message.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("service degraded: %d attempts failed, last: %v", e.Attempts, e.Last)
}

// Unwrap returns the last classified failure.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Executor wraps provider calls with bounded exponential-backoff retry.
// One executor is shared by every call site; it holds no per-request state.
type Executor struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Logger      *slog.Logger
}

// NewExecutor creates an executor with the default retry policy:
// 3 attempts, delays of 2s and 4s, capped at 10s.
func NewExecutor() *Executor {
	return &Executor{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		Logger:      slog.Default(),
	}
}

// Execute runs call, retrying on retryable failures with exponential
// backoff. Terminal failures stop immediately and surface the classified
// error. Context cancellation aborts the backoff sleep and any remaining
// attempts.
func (e *Executor) Execute(ctx context.Context, call func(context.Context) (*Response, error)) (*Response, error) {
	maxAttempts := e.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	baseDelay := e.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	maxDelay := e.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var last *ClassifiedError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := call(ctx)
		if err == nil {
			return resp, nil
		}

		classified := Classify(err)
		if !classified.IsRetryable() {
			logger.Warn("provider call failed terminally",
				"attempt", attempt,
				"status", classified.StatusCode,
				"error", err)
			return nil, classified
		}

		last = classified
		if attempt == maxAttempts {
			break
		}

		delay := baseDelay << (attempt - 1)
		if delay > maxDelay {
			delay = maxDelay
		}
		logger.Debug("provider call failed, retrying",
			"attempt", attempt,
			"wait", delay,
			"error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, &ExhaustedError{Attempts: maxAttempts, Last: last}
}
