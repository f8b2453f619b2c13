package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for the OpenAI chat generator.
type OpenAIConfig struct {
	// APIKey authenticates against the API.
	APIKey string
	// Model is the chat model name.
	Model string
	// BaseURL overrides the API endpoint (optional, for compatible
	// gateways).
	BaseURL string
	// MaxTokens caps the generated answer length.
	MaxTokens int
	// Temperature controls sampling randomness. Grounded answering
	// wants it low.
	Temperature float32
}

// OpenAIGenerator produces answers through the OpenAI chat completions
// API.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIGenerator creates a generator from config.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key required", ErrInvalidConfig)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Generate returns the model's answer for the prompt.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", ErrGenerationFailed)
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}
	return resp.Choices[0].Message.Content, nil
}

// Close is a no-op; the generator holds no persistent connections.
func (g *OpenAIGenerator) Close() error {
	return nil
}
