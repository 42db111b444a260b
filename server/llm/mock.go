package llm

import (
	"context"
	"strings"
	"sync"
)

// MockProvider is a scriptable Provider for tests and the offline harness.
type MockProvider struct {
	mu       sync.Mutex
	name     string
	invoke   func(ctx context.Context, req Request) (*Response, error)
	requests []Request
}

// NewMockProvider creates a mock whose Invoke delegates to fn.
func NewMockProvider(name string, fn func(ctx context.Context, req Request) (*Response, error)) *MockProvider {
	return &MockProvider{name: name, invoke: fn}
}

// NewStaticProvider creates a mock that always returns the given text with
// a usage estimated from the request and response sizes.
func NewStaticProvider(name, text string) *MockProvider {
	return NewMockProvider(name, func(_ context.Context, req Request) (*Response, error) {
		return &Response{
			Text: text,
			Usage: Usage{
				InputTokens:  EstimateTokens(req.SystemInstruction + req.UserPrompt),
				OutputTokens: EstimateTokens(text),
			},
		}, nil
	})
}

// NewEchoProvider creates a provider that answers every prompt with a
// canned, well-formed response for its task. It backs the "mock" vendor so
// the server and the performance harness run fully offline, without keys
// or network access.
func NewEchoProvider(name string) *MockProvider {
	return NewMockProvider(name, func(_ context.Context, req Request) (*Response, error) {
		var text string
		switch {
		case strings.Contains(req.SystemInstruction, "email analysis"):
			text = `{"urgency_score": 3, "purpose": "information", "response_needed": false, "estimated_time": 5, "key_points": ["offline canned response"], "confidence": 50}`
		case strings.Contains(req.SystemInstruction, "task extraction"):
			text = `[{"task_description": "Follow up on this email", "deadline": null, "stakeholders": []}]`
		case strings.Contains(req.SystemInstruction, "email replies"):
			text = `["Thanks for reaching out! I'll take a look and get back to you shortly."]`
		default:
			text = "Offline canned response."
		}
		return &Response{
			Text: text,
			Usage: Usage{
				InputTokens:  EstimateTokens(req.SystemInstruction + req.UserPrompt),
				OutputTokens: EstimateTokens(text),
			},
		}, nil
	})
}

// Name returns the configured provider name.
func (m *MockProvider) Name() string {
	return m.name
}

// Invoke records the request and delegates to the scripted function.
func (m *MockProvider) Invoke(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.invoke(ctx, req)
}

// Calls returns the number of recorded invocations.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent recorded request.
func (m *MockProvider) LastRequest() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return Request{}, false
	}
	return m.requests[len(m.requests)-1], true
}
