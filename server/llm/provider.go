// Package llm wraps hosted language-model vendors behind a single Provider
// interface and supplies the failure classification and retry machinery
// every call site shares.
package llm

import (
	"context"
	"time"
)

// Usage reports the token consumption of a single provider call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns the combined token count.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Request is a vendor-agnostic completion request.
type Request struct {
	SystemInstruction string
	UserPrompt        string
	MaxOutputTokens   int
	Temperature       float32
}

// Response is the text plus usage a provider returns on success.
type Response struct {
	Text  string
	Usage Usage
}

// Provider issues requests against one external vendor. Implementations are
// immutable after construction; one instance exists per configured vendor.
type Provider interface {
	// Name returns the configured provider name, used as the budget
	// ledger account key.
	Name() string

	// Invoke performs a single completion call. Transport failures come
	// back as classifiable errors; Invoke itself never retries.
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// DefaultCallTimeout bounds a single provider call when the caller does not
// supply a tighter deadline.
const DefaultCallTimeout = 30 * time.Second

// EstimateTokens gives a rough token count for budget estimation
// (4 chars per token).
func EstimateTokens(text string) int {
	return len(text) / 4
}
