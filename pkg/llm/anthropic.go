package llm

import (
	"context"
	"fmt"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const anthropicMaxTokens = 2000

// AnthropicClient talks to the Anthropic messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropicClient creates a chat client for Anthropic. An empty endpoint
// uses the default API base URL.
func NewAnthropicClient(endpoint, model, apiKey string, logger *zap.Logger) (*AnthropicClient, error) {
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	var opts []anthropic.ClientOption
	if endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(endpoint))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
		logger: logger.Named("llm"),
	}, nil
}

// Complete implements ChatClient.
func (c *AnthropicClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		System:    systemPrompt,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: anthropic.MessagesContentTypeText, Text: &userPrompt},
			}},
		},
	})
	if err != nil {
		classified := ClassifyError(err)
		classified.Model = c.model
		return "", classified
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			content = *block.Text
			break
		}
	}
	if content == "" {
		return "", NewError(ErrorTypeResponse, "no text content in response", false, nil)
	}

	c.logger.Debug("Chat completion",
		zap.String("model", c.model),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("duration", time.Since(start)))

	return content, nil
}

// Model implements ChatClient.
func (c *AnthropicClient) Model() string {
	return c.model
}

// Ensure AnthropicClient implements ChatClient at compile time.
var _ ChatClient = (*AnthropicClient)(nil)
