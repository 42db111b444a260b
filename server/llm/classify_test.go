package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiError(status int) error {
	return &openai.APIError{HTTPStatusCode: status, Message: "boom"}
}

func TestClassify_StatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected FailureKind
	}{
		{"internal server error", 500, FailureRetryable},
		{"bad gateway", 502, FailureRetryable},
		{"gateway timeout", 504, FailureRetryable},
		{"unauthorized", 401, FailureTerminal},
		{"forbidden", 403, FailureTerminal},
		{"rate limited", 429, FailureTerminal},
		{"bad request", 400, FailureTerminal},
		{"not found", 404, FailureTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := Classify(apiError(tt.status))
			require.NotNil(t, classified)
			assert.Equal(t, tt.expected, classified.Kind)
			assert.Equal(t, tt.status, classified.StatusCode)
		})
	}
}

func TestClassify_RequestError(t *testing.T) {
	err := &openai.RequestError{HTTPStatusCode: 503, Err: errors.New("unavailable")}
	classified := Classify(err)
	assert.Equal(t, FailureRetryable, classified.Kind)
	assert.Equal(t, 503, classified.StatusCode)
}

func TestClassify_NetworkAndTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"deadline exceeded", context.DeadlineExceeded},
		{"net error", &net.DNSError{Err: "no such host", IsTimeout: false}},
		{"connection refused", errors.New("dial tcp 127.0.0.1:443: connection refused")},
		{"io timeout", errors.New("read tcp: i/o timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := Classify(tt.err)
			assert.Equal(t, FailureRetryable, classified.Kind, "should be retryable: %v", tt.err)
		})
	}
}

func TestClassify_UnknownDefaultsToTerminal(t *testing.T) {
	// Local programming errors must never be retried blindly.
	classified := Classify(errors.New("nil pointer dereference in prompt builder"))
	assert.Equal(t, FailureTerminal, classified.Kind)
	assert.Zero(t, classified.StatusCode)
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(nil))
	assert.False(t, IsRetryable(nil))
}

func TestClassifiedError_UserMessage(t *testing.T) {
	tests := []struct {
		status   int
		contains string
	}{
		{401, "invalid or expired"},
		{403, "does not have access"},
		{429, "rate limit"},
		{422, "Provider error (422)"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			classified := Classify(apiError(tt.status))
			assert.Contains(t, classified.UserMessage(), tt.contains)
		})
	}

	degraded := Classify(apiError(500))
	assert.Contains(t, degraded.UserMessage(), "temporarily degraded")
}

func TestClassifiedError_Unwrap(t *testing.T) {
	original := apiError(500)
	classified := Classify(original)

	var apiErr *openai.APIError
	require.True(t, errors.As(classified, &apiErr))
	assert.Equal(t, 500, apiErr.HTTPStatusCode)
}
