package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/config"
)

// NewChatClient creates the chat client named by configuration.
func NewChatClient(cfg *config.LLMConfig, logger *zap.Logger) (ChatClient, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIClient(cfg.Endpoint, cfg.Model, cfg.APIKey, logger)
	case "anthropic":
		return NewAnthropicClient(cfg.Endpoint, cfg.Model, cfg.APIKey, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (want openai or anthropic)", cfg.Provider)
	}
}
