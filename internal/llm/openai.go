package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI backend
type OpenAIConfig struct {
	APIKey    string
	Model     string // e.g. "gpt-4o"
	BaseURL   string // default https://api.openai.com/v1
	MaxTokens int
}

// OpenAI implements the Backend interface using the OpenAI chat completions API
type OpenAI struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAI creates a new OpenAI Backend instance
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}, nil
}

// Name returns the provenance tag for records produced by this backend
func (o *OpenAI) Name() string {
	return "OpenAI " + o.cfg.Model
}

// Generate sends the prompt as a single user message
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens: o.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response: %w", ErrEmptyResponse)
	}

	return resp.Choices[0].Message.Content, nil
}

// Probe succeeds once the client exists; the API key is checked on first use
func (o *OpenAI) Probe(ctx context.Context) error {
	if o.client == nil {
		return ErrBackendUnavailable
	}
	return nil
}

// Close is a no-op for the HTTP based client
func (o *OpenAI) Close() error {
	return nil
}
