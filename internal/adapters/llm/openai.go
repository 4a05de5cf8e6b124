package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"doctalk/internal/domain/entities"
)

// OpenAIAdapter implements ports.Generator using the chat completions API.
type OpenAIAdapter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIAdapter creates an OpenAI generator adapter.
func NewOpenAIAdapter(client *openai.Client, model string, temperature float32, maxTokens int) *OpenAIAdapter {
	if model == "" {
		model = openai.GPT4oMini
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &OpenAIAdapter{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Generate produces an answer for the prompt.
func (a *OpenAIAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", entities.ErrMalformedGeneratorResponse
	}
	return resp.Choices[0].Message.Content, nil
}
