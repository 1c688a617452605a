package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIBackend talks to any OpenAI-compatible chat completion endpoint.
type OpenAIBackend struct {
	api   *openai.Client
	model string
}

// NewOpenAI creates a new OpenAI-compatible backend.
func NewOpenAI(baseURL, apiKey, modelName string) *OpenAIBackend {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIBackend{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Name implements Backend.
func (b *OpenAIBackend) Name() string { return "openai" }

// Generate sends the prompt as a single user message.
func (b *OpenAIBackend) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := b.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "backend", b.Name(), "raw", raw)
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyResponse
	}
	return raw, nil
}

// Ping checks that the endpoint answers by listing its models.
func (b *OpenAIBackend) Ping(ctx context.Context) error {
	if _, err := b.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
