package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
	"github.com/sayandkrishna/querypilot/pkg/models"
	"github.com/sayandkrishna/querypilot/pkg/retry"
)

const systemPrompt = `You are a PostgreSQL query generator. Given a database schema and a question, respond with exactly one JSON object of the form {"query": "<SQL>", "table": "<primary table>"}.

Rules:
- Generate exactly one read-only SELECT statement.
- Only reference tables and columns that appear in the schema.
- Never generate INSERT, UPDATE, DELETE, DDL, or transaction statements.
- Respond with the JSON object only, no explanation.`

// maxHistoryTurns bounds how much conversation context rides along with
// the question.
const maxHistoryTurns = 6

// SQLGenerator produces SQL via a chat client, with bounded retries on
// transient provider failures.
type SQLGenerator struct {
	client     ChatClient
	maxRetries int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewSQLGenerator creates a generator over the given chat client.
func NewSQLGenerator(client ChatClient, maxRetries int, timeout time.Duration, logger *zap.Logger) *SQLGenerator {
	return &SQLGenerator{
		client:     client,
		maxRetries: maxRetries,
		timeout:    timeout,
		logger:     logger.Named("generator"),
	}
}

// GenerateSQL asks the model for a SQL statement answering the question
// against the given schema. Transient provider failures are retried with
// backoff; malformed output, empty output, and timeouts all surface as
// generation errors with distinct messages.
func (g *SQLGenerator) GenerateSQL(ctx context.Context, question string, snapshot *models.SchemaSnapshot, history []models.HistoryTurn) (*GeneratedQuery, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	userPrompt := buildPrompt(question, snapshot, history)

	cfg := retry.DefaultConfig()
	cfg.MaxRetries = g.maxRetries

	var raw string
	err := retry.DoIfRetryable(ctx, cfg, func() error {
		var completeErr error
		raw, completeErr = g.client.Complete(ctx, systemPrompt, userPrompt)
		return completeErr
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.Wrap(apperrors.KindGeneration, "SQL generation timed out", err)
		}
		return nil, apperrors.Wrap(apperrors.KindGeneration, "SQL generation failed", err)
	}

	generated, err := ParseJSONResponse[GeneratedQuery](raw)
	if err != nil {
		g.logger.Warn("Unparseable generator output",
			zap.String("model", g.client.Model()),
			zap.Int("response_len", len(raw)))
		return nil, apperrors.Wrap(apperrors.KindGeneration, "model returned malformed output", err)
	}

	generated.Query = strings.TrimSpace(generated.Query)
	if generated.Query == "" {
		return nil, apperrors.New(apperrors.KindGeneration, "model returned no SQL")
	}

	g.logger.Debug("SQL generated",
		zap.String("model", g.client.Model()),
		zap.String("table", generated.Table))

	return &generated, nil
}

// buildPrompt renders the schema compactly, one table per line, then the
// recent conversation, then the question.
func buildPrompt(question string, snapshot *models.SchemaSnapshot, history []models.HistoryTurn) string {
	var b strings.Builder

	b.WriteString("Schema")
	if snapshot != nil && snapshot.DatabaseName != "" {
		fmt.Fprintf(&b, " of database %q", snapshot.DatabaseName)
	}
	b.WriteString(":\n")

	if snapshot != nil {
		for _, table := range snapshot.Tables {
			cols := make([]string, len(table.Columns))
			for i, c := range table.Columns {
				cols[i] = fmt.Sprintf("%s %s", c.Name, c.DataType)
			}
			fmt.Fprintf(&b, "- %s(%s)\n", table.Name, strings.Join(cols, ", "))
		}
	}

	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	if len(history) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)

	return b.String()
}

// Ensure SQLGenerator implements Generator at compile time.
var _ Generator = (*SQLGenerator)(nil)
