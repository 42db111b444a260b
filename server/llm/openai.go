package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Config holds the configuration for one OpenAI-compatible provider.
// DeepSeek, SiliconFlow and Ollama all speak the same chat completion
// protocol, so a base URL switch covers every supported vendor. The "mock"
// vendor never leaves the process and serves offline runs.
type Config struct {
	Name    string
	Vendor  string // openai, deepseek, siliconflow, ollama, mock
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type openAIProvider struct {
	name    string
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewProvider creates a provider for an OpenAI-compatible endpoint.
func NewProvider(cfg *Config) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("provider config is required")
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	if cfg.Vendor == "mock" {
		return NewEchoProvider(cfg.Name), nil
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("provider %s: model is required", cfg.Name)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch cfg.Vendor {
		case "deepseek":
			baseURL = "https://api.deepseek.com"
		case "siliconflow":
			baseURL = "https://api.siliconflow.cn/v1"
		case "ollama":
			baseURL = "http://localhost:11434/v1"
		default:
			baseURL = "https://api.openai.com/v1"
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = baseURL

	return &openAIProvider{
		name:    cfg.Name,
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: timeout,
	}, nil
}

func (p *openAIProvider) Name() string {
	return p.name
}

func (p *openAIProvider) Invoke(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   req.MaxOutputTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}

	return &Response{
		Text: resp.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
