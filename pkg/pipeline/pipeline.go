// Package pipeline resolves natural-language questions to executed SQL.
// Each question walks an explicit state machine: semantic cache first,
// then intent patterns, then the language model, then execution and a
// cache write. Cache trouble anywhere degrades the walk, never fails it.
package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
	"github.com/sayandkrishna/querypilot/pkg/cache"
	"github.com/sayandkrishna/querypilot/pkg/config"
	"github.com/sayandkrishna/querypilot/pkg/embedding"
	"github.com/sayandkrishna/querypilot/pkg/intent"
	"github.com/sayandkrishna/querypilot/pkg/llm"
	"github.com/sayandkrishna/querypilot/pkg/models"
	"github.com/sayandkrishna/querypilot/pkg/repositories"
	"github.com/sayandkrishna/querypilot/pkg/sqlsafe"
)

// State names one step of the resolution walk.
type State string

const (
	StateCacheCheck  State = "cache_check"
	StateIntentCheck State = "intent_check"
	StateLLMGenerate State = "llm_generate"
	StateExecute     State = "execute"
	StateCacheWrite  State = "cache_write"
	StateDone        State = "done"
	StateError       State = "error"
)

// Source says which stage produced the answer.
type Source string

const (
	SourceCache  Source = "cache"
	SourceIntent Source = "intent"
	SourceLLM    Source = "llm"
)

// Result is a resolved question.
type Result struct {
	SQLQuery         string            `json:"sql_query,omitempty"`
	RowsReturned     int               `json:"rows_returned"`
	Data             []map[string]any  `json:"data"`
	Tables           []string          `json:"tables,omitempty"`
	ExecutionTime    models.DurationMs `json:"execution_time_ms"`
	Success          bool              `json:"success"`
	Source           Source            `json:"source"`
	ServedFromCache  bool              `json:"served_from_cache"`
	Similarity       float64           `json:"similarity,omitempty"`
	Confidence       float64           `json:"confidence,omitempty"`
	CacheWriteFailed bool              `json:"cache_write_failed,omitempty"`
}

// TargetClient is how the pipeline reaches target databases.
type TargetClient interface {
	Snapshot(ctx context.Context, cfg *models.DatabaseConfig) (*models.SchemaSnapshot, error)
	Execute(ctx context.Context, cfg *models.DatabaseConfig, sqlQuery string, args ...any) (*models.QueryResult, error)
}

// Pipeline resolves questions for authenticated users against their
// registered target databases.
type Pipeline struct {
	embedder  embedding.Provider
	cache     *cache.SemanticCache
	matcher   *intent.Matcher
	generator llm.Generator
	targets   TargetClient
	configs   repositories.DBConfigRepository

	intentThreshold float64
	logger          *zap.Logger
}

// New creates a pipeline.
func New(
	embedder embedding.Provider,
	sc *cache.SemanticCache,
	matcher *intent.Matcher,
	generator llm.Generator,
	targets TargetClient,
	configs repositories.DBConfigRepository,
	cfg *config.PipelineConfig,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		embedder:        embedder,
		cache:           sc,
		matcher:         matcher,
		generator:       generator,
		targets:         targets,
		configs:         configs,
		intentThreshold: cfg.IntentConfidenceThreshold,
		logger:          logger.Named("pipeline"),
	}
}

// askRun carries the walk's accumulated state between steps.
type askRun struct {
	userID   uuid.UUID
	owner    string
	dbName   string
	question string
	history  []models.HistoryTurn

	dbConfig  *models.DatabaseConfig
	embedding []float32
	snapshot  *models.SchemaSnapshot

	// Chosen statement, set by intent or the generator.
	sql        string
	args       []any
	source     Source
	confidence float64
	listTables bool

	result *Result
	err    error
}

// Ask resolves one question against the named target database.
func (p *Pipeline) Ask(ctx context.Context, userID uuid.UUID, dbName, question string, history []models.HistoryTurn) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.New(apperrors.KindValidation, "question must not be empty")
	}
	if dbName == "" {
		return nil, apperrors.New(apperrors.KindValidation, "database name must not be empty")
	}

	dbConfig, err := p.configs.Get(ctx, userID, dbName)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Newf(apperrors.KindValidation,
				"no database named %q is registered for this user", dbName)
		}
		return nil, err
	}

	run := &askRun{
		userID:   userID,
		owner:    userID.String(),
		dbName:   dbName,
		question: question,
		history:  history,
		dbConfig: dbConfig,
	}

	state := StateCacheCheck
	for state != StateDone && state != StateError {
		switch state {
		case StateCacheCheck:
			state = p.stepCacheCheck(ctx, run)
		case StateIntentCheck:
			state = p.stepIntentCheck(ctx, run)
		case StateLLMGenerate:
			state = p.stepLLMGenerate(ctx, run)
		case StateExecute:
			state = p.stepExecute(ctx, run)
		case StateCacheWrite:
			state = p.stepCacheWrite(ctx, run)
		}
	}

	if state == StateError {
		return nil, run.err
	}
	return run.result, nil
}

// stepCacheCheck embeds the question and looks it up. Embedding failure
// disables caching for the walk and moves on; it never fails the question.
func (p *Pipeline) stepCacheCheck(ctx context.Context, run *askRun) State {
	emb, err := p.embedder.Embed(ctx, run.question)
	if err != nil {
		p.logger.Warn("Embedding failed, skipping cache for this question",
			zap.Error(err))
		return StateIntentCheck
	}
	run.embedding = emb

	hit := p.cache.Lookup(ctx, run.owner, emb)
	if hit == nil || hit.Entry.Result == nil {
		return StateIntentCheck
	}

	cached := hit.Entry.Result
	run.result = &Result{
		SQLQuery:        cached.SQLQuery,
		RowsReturned:    cached.RowsReturned,
		Data:            cached.Data,
		ExecutionTime:   cached.ExecutionTime,
		Success:         true,
		Source:          SourceCache,
		ServedFromCache: true,
		Similarity:      hit.Similarity,
	}
	return StateDone
}

// stepIntentCheck tries the pattern rules. Anything the rules cannot
// answer, including table or column resolution failures, falls through to
// the generator.
func (p *Pipeline) stepIntentCheck(ctx context.Context, run *askRun) State {
	snapshot, err := p.targets.Snapshot(ctx, run.dbConfig)
	if err != nil {
		run.err = err
		return StateError
	}
	run.snapshot = snapshot

	match, ok := p.matcher.Match(run.question)
	if !ok || match.Confidence < p.intentThreshold {
		return StateLLMGenerate
	}

	built, err := intent.Build(match, snapshot)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindUnsafeStatement) {
			run.err = err
			return StateError
		}
		p.logger.Debug("Intent matched but could not build, falling through",
			zap.String("pattern", match.Pattern),
			zap.Error(err))
		return StateLLMGenerate
	}

	run.source = SourceIntent
	run.confidence = match.Confidence

	if built.ListTables {
		run.listTables = true
		run.result = &Result{
			Tables:     snapshot.TableNames(),
			Success:    true,
			Source:     SourceIntent,
			Confidence: match.Confidence,
		}
		return StateCacheWrite
	}

	run.sql = built.SQL
	run.args = built.Args
	return StateExecute
}

// stepLLMGenerate asks the model and gates its output.
func (p *Pipeline) stepLLMGenerate(ctx context.Context, run *askRun) State {
	generated, err := p.generator.GenerateSQL(ctx, run.question, run.snapshot, run.history)
	if err != nil {
		run.err = err
		return StateError
	}

	vr := sqlsafe.ValidateAndNormalize(generated.Query)
	if vr.Error != nil {
		run.err = vr.Error
		return StateError
	}
	if _, err := sqlsafe.RequireReadOnly(vr.NormalizedSQL); err != nil {
		run.err = err
		return StateError
	}
	if err := sqlsafe.CheckReferences(vr.NormalizedSQL, run.snapshot); err != nil {
		run.err = err
		return StateError
	}

	run.source = SourceLLM
	run.sql = vr.NormalizedSQL
	return StateExecute
}

// stepExecute runs the chosen statement.
func (p *Pipeline) stepExecute(ctx context.Context, run *askRun) State {
	queryResult, err := p.targets.Execute(ctx, run.dbConfig, run.sql, run.args...)
	if err != nil {
		run.err = err
		return StateError
	}

	run.result = &Result{
		SQLQuery:      queryResult.SQLQuery,
		RowsReturned:  queryResult.RowsReturned,
		Data:          queryResult.Data,
		ExecutionTime: queryResult.ExecutionTime,
		Success:       true,
		Source:        run.source,
		Confidence:    run.confidence,
	}
	return StateCacheWrite
}

// stepCacheWrite stores the successful result. A failed write is reported
// on the result, not as an error.
func (p *Pipeline) stepCacheWrite(ctx context.Context, run *askRun) State {
	if run.embedding == nil || !p.cache.Enabled() {
		return StateDone
	}
	if run.listTables {
		// Table listings change with the target schema; serving a stale
		// listing is worse than recomputing it.
		return StateDone
	}

	stored := &models.QueryResult{
		SQLQuery:      run.result.SQLQuery,
		RowsReturned:  run.result.RowsReturned,
		Data:          run.result.Data,
		ExecutionTime: run.result.ExecutionTime,
		Success:       true,
	}
	if err := p.cache.Store(ctx, run.owner, run.question, run.embedding, run.result.SQLQuery, stored); err != nil {
		run.result.CacheWriteFailed = true
	}
	return StateDone
}
