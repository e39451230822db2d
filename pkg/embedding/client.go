package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/config"
)

// Client generates embeddings via an OpenAI-compatible endpoint.
type Client struct {
	client     *openai.Client
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewClient creates a new embedding client.
func NewClient(cfg *config.EmbeddingConfig, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &Client{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		logger:     logger.Named("embedding"),
	}, nil
}

// Embed generates a normalized embedding for the given text. Whitespace-only
// input embeds to a zero vector without calling the endpoint; a zero vector
// has similarity 0 to everything, so it can never produce a cache hit.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	normalized := NormalizeInput(text)
	if normalized == "" {
		return make([]float32, c.dimensions), nil
	}

	start := time.Now()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: []string{normalized},
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding in response")
	}

	vec := resp.Data[0].Embedding
	if len(vec) != c.dimensions {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), c.dimensions)
	}

	c.logger.Debug("Embedding generated",
		zap.Int("input_len", len(normalized)),
		zap.Duration("duration", time.Since(start)))

	return Normalize(vec), nil
}

// Dimensions returns the configured vector length.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Model returns the embedding model identifier.
func (c *Client) Model() string {
	return c.model
}

// Probe verifies the embedding endpoint is reachable by embedding a short
// sentinel string. Called at startup so a misconfigured endpoint fails fast
// instead of silently disabling the cache.
func (c *Client) Probe(ctx context.Context) error {
	if _, err := c.Embed(ctx, "startup probe"); err != nil {
		return fmt.Errorf("embedding endpoint probe failed: %w", err)
	}
	return nil
}

// Ensure Client implements Provider at compile time.
var _ Provider = (*Client)(nil)
