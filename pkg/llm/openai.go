package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient talks to any OpenAI-compatible chat endpoint (OpenAI itself,
// Ollama, vLLM, and the rest).
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIClient creates a chat client for an OpenAI-compatible endpoint.
func NewOpenAIClient(endpoint, model, apiKey string, logger *zap.Logger) (*OpenAIClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = strings.TrimSuffix(endpoint, "/")

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger.Named("llm"),
	}, nil
}

// Complete implements ChatClient.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0,
	})
	if err != nil {
		classified := ClassifyError(err)
		classified.Model = c.model
		return "", classified
	}

	if len(resp.Choices) == 0 {
		return "", NewError(ErrorTypeResponse, "no choices in response", false, nil)
	}

	content := resp.Choices[0].Message.Content

	c.logger.Debug("Chat completion",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(start)))

	return content, nil
}

// Model implements ChatClient.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Ensure OpenAIClient implements ChatClient at compile time.
var _ ChatClient = (*OpenAIClient)(nil)
