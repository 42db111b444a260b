package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// FailureKind categorizes a provider failure for retry decisions.
type FailureKind int

const (
	// FailureRetryable indicates a transient error worth retrying.
	// Examples: 5xx status, network timeout, dropped connection.
	FailureRetryable FailureKind = iota

	// FailureTerminal indicates a non-retryable error the caller (or the
	// user) must act on. Examples: bad credentials, missing permission,
	// rate limiting, local programming errors.
	FailureTerminal
)

// String returns the string representation of FailureKind.
func (k FailureKind) String() string {
	switch k {
	case FailureRetryable:
		return "retryable"
	case FailureTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps a provider failure with its classification and an
// HTTP-like status code when one was available.
type ClassifiedError struct {
	Kind       FailureKind
	StatusCode int
	Original   error
}

// Error returns a formatted error message.
func (c *ClassifiedError) Error() string {
	if c.Original == nil {
		return fmt.Sprintf("classified error: kind=%s", c.Kind)
	}
	return fmt.Sprintf("%s: %v", c.Kind, c.Original)
}

// Unwrap returns the original error for errors.Is/As.
func (c *ClassifiedError) Unwrap() error {
	return c.Original
}

// IsRetryable returns true if the failure is transient and worth retrying.
func (c *ClassifiedError) IsRetryable() bool {
	return c.Kind == FailureRetryable
}

// UserMessage renders the user-facing explanation for a terminal failure,
// keyed by status code.
func (c *ClassifiedError) UserMessage() string {
	switch c.StatusCode {
	case 401:
		return "Authentication error: the API credential appears to be invalid or expired."
	case 403:
		return "Permission error: the API credential does not have access to this resource."
	case 429:
		return "Rate limit error: the provider rate limit was exceeded. Please wait a moment and try again."
	}
	if c.StatusCode >= 400 && c.StatusCode < 500 {
		return fmt.Sprintf("Provider error (%d): %v", c.StatusCode, c.Original)
	}
	if c.Kind == FailureRetryable {
		return "The service is temporarily degraded. Please try again shortly."
	}
	return fmt.Sprintf("Provider error: %v", c.Original)
}

// Classify analyzes a provider failure and decides whether it is worth
// retrying. Unknown error types default to terminal so programming errors
// are never retried blindly.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	// Vendor API errors carry an HTTP status code.
	if status, ok := statusCode(err); ok {
		if status >= 500 && status <= 599 {
			return &ClassifiedError{Kind: FailureRetryable, StatusCode: status, Original: err}
		}
		if status >= 400 && status <= 499 {
			return &ClassifiedError{Kind: FailureTerminal, StatusCode: status, Original: err}
		}
	}

	// Timeouts and cancellation are transport-level and transient.
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{Kind: FailureRetryable, Original: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ClassifiedError{Kind: FailureRetryable, Original: err}
	}

	if isConnectionError(err) || isTimeoutError(err) {
		return &ClassifiedError{Kind: FailureRetryable, Original: err}
	}

	// Default to terminal for unknown errors (fail safe).
	return &ClassifiedError{Kind: FailureTerminal, Original: err}
}

// IsRetryable is a convenience wrapper around Classify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).IsRetryable()
}

// statusCode digs the HTTP status out of go-openai error types.
func statusCode(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}

// isConnectionError checks for common network failure patterns.
func isConnectionError(err error) bool {
	errMsg := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"network is unreachable",
		"no such host",
		"temporary failure",
		"dial tcp",
		"connection lost",
	}
	for _, pattern := range patterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// isTimeoutError checks for timeout failure patterns.
func isTimeoutError(err error) bool {
	errMsg := strings.ToLower(err.Error())
	patterns := []string{
		"timeout",
		"deadline exceeded",
		"i/o timeout",
		"operation timed out",
	}
	for _, pattern := range patterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
