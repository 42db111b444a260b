package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastExecutor() *Executor {
	return &Executor{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
	}
}

func TestExecutor_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	resp, err := fastExecutor().Execute(context.Background(), func(context.Context) (*Response, error) {
		calls++
		return &Response{Text: "ok"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 1, calls)
}

func TestExecutor_RetryCeiling(t *testing.T) {
	// A failure that is always retryable must be attempted exactly
	// MaxAttempts times before giving up.
	calls := 0
	_, err := fastExecutor().Execute(context.Background(), func(context.Context) (*Response, error) {
		calls++
		return nil, apiError(500)
	})

	assert.Equal(t, 3, calls)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, FailureRetryable, exhausted.Last.Kind)
}

func TestExecutor_TerminalShortCircuit(t *testing.T) {
	// A terminal failure makes exactly one attempt regardless of MaxAttempts.
	calls := 0
	_, err := fastExecutor().Execute(context.Background(), func(context.Context) (*Response, error) {
		calls++
		return nil, apiError(401)
	})

	assert.Equal(t, 1, calls)

	var classified *ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, FailureTerminal, classified.Kind)
	assert.Equal(t, 401, classified.StatusCode)
	assert.Contains(t, classified.UserMessage(), "invalid or expired")
}

func TestExecutor_RecoversMidway(t *testing.T) {
	calls := 0
	resp, err := fastExecutor().Execute(context.Background(), func(context.Context) (*Response, error) {
		calls++
		if calls < 3 {
			return nil, apiError(503)
		}
		return &Response{Text: "recovered"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Text)
	assert.Equal(t, 3, calls)
}

func TestExecutor_BackoffDoubles(t *testing.T) {
	exec := &Executor{
		MaxAttempts: 3,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    100 * time.Millisecond,
	}

	start := time.Now()
	_, err := exec.Execute(context.Background(), func(context.Context) (*Response, error) {
		return nil, apiError(500)
	})
	elapsed := time.Since(start)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	// Two sleeps: base (10ms) then doubled (20ms).
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestExecutor_BackoffCappedAtMaxDelay(t *testing.T) {
	exec := &Executor{
		MaxAttempts: 4,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    15 * time.Millisecond,
	}

	start := time.Now()
	_, err := exec.Execute(context.Background(), func(context.Context) (*Response, error) {
		return nil, apiError(500)
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	// Sleeps are 10ms, then capped at 15ms twice: 40ms total, well under
	// the uncapped 10+20+40.
	assert.Less(t, elapsed, 65*time.Millisecond)
}

func TestExecutor_ContextCancellationAbortsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &Executor{
		MaxAttempts: 3,
		BaseDelay:   time.Hour, // would hang without cancellation
		MaxDelay:    time.Hour,
	}

	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := exec.Execute(ctx, func(context.Context) (*Response, error) {
		calls++
		return nil, apiError(500)
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecutor_DegradedVsCredentialFailure(t *testing.T) {
	// Three timeouts in a row produce a degraded-service result; a single
	// 401 produces an immediate credential failure. The two must be
	// distinguishable by the caller.
	timeoutErr := &openai.RequestError{HTTPStatusCode: 0, Err: errors.New("context deadline exceeded")}

	_, degradedErr := fastExecutor().Execute(context.Background(), func(context.Context) (*Response, error) {
		return nil, timeoutErr
	})
	var exhausted *ExhaustedError
	require.ErrorAs(t, degradedErr, &exhausted)
	assert.Contains(t, exhausted.Error(), "service degraded")

	_, credentialErr := fastExecutor().Execute(context.Background(), func(context.Context) (*Response, error) {
		return nil, apiError(401)
	})
	var classified *ClassifiedError
	require.ErrorAs(t, credentialErr, &classified)
	assert.NotErrorAs(t, credentialErr, &exhausted)
	assert.Contains(t, classified.UserMessage(), "invalid or expired")
}
