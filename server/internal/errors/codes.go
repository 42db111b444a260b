package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for assistant operations.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates authentication failure at the provider.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates the provider rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeServiceDegraded indicates the provider kept failing transiently
	// until the retry budget ran out.
	ErrCodeServiceDegraded ErrorCode = "SERVICE_DEGRADED"
	// ErrCodeContentInvalid indicates the model returned output that failed
	// structured parsing or validation.
	ErrCodeContentInvalid ErrorCode = "CONTENT_INVALID"
	// ErrCodeBudgetExhausted indicates no provider had budget for the request.
	ErrCodeBudgetExhausted ErrorCode = "BUDGET_EXHAUSTED"
	// ErrCodeProviderExhausted indicates no provider is configured for a category.
	ErrCodeProviderExhausted ErrorCode = "PROVIDER_EXHAUSTED"
	// ErrCodeStoreUnavailable indicates a document store write failed.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeFeedbackExists indicates feedback was already submitted for a task.
	ErrCodeFeedbackExists ErrorCode = "FEEDBACK_EXISTS"
	// ErrCodeNotFound indicates the requested document does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// AIError represents a structured error for assistant operations.
type AIError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AIError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *AIError) WithContext(key string, value interface{}) *AIError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *AIError) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for common error types.

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *AIError {
	return &AIError{Code: ErrCodeUnauthorized, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *AIError {
	return &AIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *AIError {
	return &AIError{Code: ErrCodeInvalidArgument, Message: msg}
}

// ServiceDegraded creates a degraded service error.
func ServiceDegraded(msg string, cause error) *AIError {
	return &AIError{Code: ErrCodeServiceDegraded, Message: msg, Cause: cause}
}

// ContentInvalid creates a content invalid error.
func ContentInvalid(msg string, cause error) *AIError {
	return &AIError{Code: ErrCodeContentInvalid, Message: msg, Cause: cause}
}

// BudgetExhausted creates a budget exhausted error.
func BudgetExhausted(msg string) *AIError {
	return &AIError{Code: ErrCodeBudgetExhausted, Message: msg}
}

// ProviderExhausted creates an error for a category with no configured provider.
func ProviderExhausted(category string) *AIError {
	return &AIError{
		Code:    ErrCodeProviderExhausted,
		Message: fmt.Sprintf("no provider configured for category: %s", category),
	}
}

// StoreUnavailable creates a store unavailable error.
func StoreUnavailable(msg string, cause error) *AIError {
	return &AIError{Code: ErrCodeStoreUnavailable, Message: msg, Cause: cause}
}

// FeedbackExists creates an error for a duplicate feedback submission.
func FeedbackExists(taskID string) *AIError {
	return &AIError{
		Code:    ErrCodeFeedbackExists,
		Message: fmt.Sprintf("feedback already submitted for task: %s", taskID),
	}
}

// NotFound creates a not found error.
func NotFound(msg string) *AIError {
	return &AIError{Code: ErrCodeNotFound, Message: msg}
}

// ContextCanceled creates a context canceled error.
func ContextCanceled(cause error) *AIError {
	return &AIError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

// Timeout creates a timeout error.
func Timeout(msg string) *AIError {
	return &AIError{Code: ErrCodeTimeout, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *AIError {
	return &AIError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if aiErr, ok := err.(*AIError); ok {
		return aiErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an AIError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if aiErr, ok := err.(*AIError); ok {
		return aiErr.Code
	}
	return defaultCode
}
