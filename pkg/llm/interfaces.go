// Package llm generates SQL from natural-language questions via a chat
// model. The provider behind it (any OpenAI-compatible endpoint, or
// Anthropic) is selected by configuration; the rest of the system only
// sees the Generator interface.
package llm

import (
	"context"

	"github.com/sayandkrishna/querypilot/pkg/models"
)

// GeneratedQuery is the model's answer: the SQL statement and the primary
// table it reads.
type GeneratedQuery struct {
	Query string `json:"query"`
	Table string `json:"table"`
}

// Generator turns a question plus target schema into a SQL statement.
type Generator interface {
	GenerateSQL(ctx context.Context, question string, snapshot *models.SchemaSnapshot, history []models.HistoryTurn) (*GeneratedQuery, error)
}

// ChatClient is the provider seam: one completion round-trip.
type ChatClient interface {
	// Complete sends one system+user prompt pair and returns the raw
	// model output.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// Model returns the model identifier for logging.
	Model() string
}
