package pipeline

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/embedding"
	"github.com/sayandkrishna/querypilot/pkg/intent"
	"github.com/sayandkrishna/querypilot/pkg/models"
)

// IntentReport shows how the pattern rules see a question.
type IntentReport struct {
	Matched        bool    `json:"matched"`
	Pattern        string  `json:"pattern,omitempty"`
	Action         string  `json:"action,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
	MeetsThreshold bool    `json:"meets_threshold"`
	Table          string  `json:"table,omitempty"`
	Column         string  `json:"column,omitempty"`
	Value          string  `json:"value,omitempty"`
	Limit          int     `json:"limit,omitempty"`
	SQL            string  `json:"sql,omitempty"`
	Args           []any   `json:"args,omitempty"`
	BuildError     string  `json:"build_error,omitempty"`
}

// DebugIntent reports what the intent rules would do with a question,
// without executing anything. When dbName names a registered database the
// report includes the statement that would be built against its schema.
func (p *Pipeline) DebugIntent(ctx context.Context, userID uuid.UUID, dbName, question string) (*IntentReport, error) {
	match, ok := p.matcher.Match(question)
	if !ok {
		return &IntentReport{}, nil
	}

	report := &IntentReport{
		Matched:        true,
		Pattern:        match.Pattern,
		Action:         string(match.Action),
		Confidence:     match.Confidence,
		MeetsThreshold: match.Confidence >= p.intentThreshold,
		Table:          match.Table,
		Column:         match.Column,
		Value:          match.Value,
		Limit:          match.Limit,
	}

	if dbName == "" {
		return report, nil
	}

	dbConfig, err := p.configs.Get(ctx, userID, dbName)
	if err != nil {
		return nil, err
	}
	snapshot, err := p.targets.Snapshot(ctx, dbConfig)
	if err != nil {
		return nil, err
	}

	built, err := intent.Build(match, snapshot)
	if err != nil {
		report.BuildError = err.Error()
		return report, nil
	}
	if built.ListTables {
		report.SQL = "(table listing from schema snapshot)"
		return report, nil
	}
	report.SQL = built.SQL
	report.Args = built.Args
	return report, nil
}

// SimilarityReport compares two questions by the same cosine measure the
// cache uses to decide hits.
type SimilarityReport struct {
	QueryA     string  `json:"query_a"`
	QueryB     string  `json:"query_b"`
	Similarity float64 `json:"similarity"`
	Threshold  float64 `json:"threshold"`
	WouldHit   bool    `json:"would_hit"`
}

// DebugSimilarity embeds two questions and returns their cosine
// similarity. It never reads the cache store, so it keeps working while
// the cache is down.
func (p *Pipeline) DebugSimilarity(ctx context.Context, queryA, queryB string) (*SimilarityReport, error) {
	embA, err := p.embedder.Embed(ctx, queryA)
	if err != nil {
		return nil, err
	}
	embB, err := p.embedder.Embed(ctx, queryB)
	if err != nil {
		return nil, err
	}

	sim := embedding.Cosine(embA, embB)
	return &SimilarityReport{
		QueryA:     queryA,
		QueryB:     queryB,
		Similarity: sim,
		Threshold:  p.cache.Threshold(),
		WouldHit:   sim >= p.cache.Threshold(),
	}, nil
}

// CacheStats summarizes the user's cache namespace.
func (p *Pipeline) CacheStats(ctx context.Context, userID uuid.UUID) (*models.CacheStats, error) {
	return p.cache.Stats(ctx, userID.String())
}

// ClearCache drops the user's cached entries and returns how many were
// removed.
func (p *Pipeline) ClearCache(ctx context.Context, userID uuid.UUID) (int, error) {
	cleared, err := p.cache.Clear(ctx, userID.String())
	if err != nil {
		return 0, err
	}
	p.logger.Info("Cache cleared",
		zap.String("user_id", userID.String()),
		zap.Int("entries", cleared))
	return cleared, nil
}

// Health reports the pipeline's dependency health. A cache outage is
// degraded, not unhealthy, because the pipeline keeps answering without
// it.
type Health struct {
	Cache     string `json:"cache"`
	Embedding string `json:"embedding"`
	Degraded  bool   `json:"degraded"`
}

// CheckHealth probes the cache store and the embedding endpoint.
func (p *Pipeline) CheckHealth(ctx context.Context) *Health {
	h := &Health{Cache: "ok", Embedding: "ok"}

	if err := p.cache.Ping(ctx); err != nil {
		h.Cache = err.Error()
		h.Degraded = true
	}
	if _, err := p.embedder.Embed(ctx, "health probe"); err != nil {
		h.Embedding = err.Error()
		h.Degraded = true
	}
	return h
}
