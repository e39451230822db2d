package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
	"github.com/sayandkrishna/querypilot/pkg/cache"
	"github.com/sayandkrishna/querypilot/pkg/config"
	"github.com/sayandkrishna/querypilot/pkg/embedding"
	"github.com/sayandkrishna/querypilot/pkg/intent"
	"github.com/sayandkrishna/querypilot/pkg/llm"
	"github.com/sayandkrishna/querypilot/pkg/models"
)

type mockTargetClient struct {
	SnapshotFunc func(ctx context.Context, cfg *models.DatabaseConfig) (*models.SchemaSnapshot, error)
	ExecuteFunc  func(ctx context.Context, cfg *models.DatabaseConfig, sqlQuery string, args ...any) (*models.QueryResult, error)

	SnapshotCalls int
	ExecuteCalls  int
	LastSQL       string
	LastArgs      []any
}

func (m *mockTargetClient) Snapshot(ctx context.Context, cfg *models.DatabaseConfig) (*models.SchemaSnapshot, error) {
	m.SnapshotCalls++
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx, cfg)
	}
	return &models.SchemaSnapshot{}, nil
}

func (m *mockTargetClient) Execute(ctx context.Context, cfg *models.DatabaseConfig, sqlQuery string, args ...any) (*models.QueryResult, error) {
	m.ExecuteCalls++
	m.LastSQL = sqlQuery
	m.LastArgs = args
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, cfg, sqlQuery, args...)
	}
	return &models.QueryResult{
		SQLQuery:      sqlQuery,
		RowsReturned:  1,
		Data:          []map[string]any{{"id": int64(1)}},
		ExecutionTime: models.DurationMs(5 * time.Millisecond),
		Success:       true,
	}, nil
}

type mockConfigRepo struct {
	GetFunc func(ctx context.Context, userID uuid.UUID, name string) (*models.DatabaseConfig, error)
}

func (m *mockConfigRepo) Save(ctx context.Context, cfg *models.DatabaseConfig) error { return nil }

func (m *mockConfigRepo) Get(ctx context.Context, userID uuid.UUID, name string) (*models.DatabaseConfig, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID, name)
	}
	return &models.DatabaseConfig{UserID: userID, Name: name, Host: "localhost", Port: 5432}, nil
}

func (m *mockConfigRepo) List(ctx context.Context, userID uuid.UUID) ([]*models.DatabaseConfig, error) {
	return nil, nil
}

func (m *mockConfigRepo) Delete(ctx context.Context, userID uuid.UUID, name string) error {
	return nil
}

// unitVector returns a deterministic normalized embedding per text, so
// identical questions hit and different questions miss.
func unitVector(text string) []float32 {
	v := make([]float32, 8)
	for i, r := range text {
		v[i%8] += float32(r)
	}
	embedding.Normalize(v)
	return v
}

type fixture struct {
	pipeline  *Pipeline
	embedder  *embedding.MockProvider
	store     *cache.MemoryStore
	cache     *cache.SemanticCache
	generator *llm.MockGenerator
	targets   *mockTargetClient
	configs   *mockConfigRepo
	userID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	store := cache.NewMemoryStore()
	sc := cache.New(store, 0.88, time.Hour, logger)

	embedder := embedding.NewMockProvider()
	embedder.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		return unitVector(text), nil
	}

	targets := &mockTargetClient{
		SnapshotFunc: func(ctx context.Context, cfg *models.DatabaseConfig) (*models.SchemaSnapshot, error) {
			return &models.SchemaSnapshot{
				DatabaseName: cfg.Name,
				Tables: []models.TableSchema{
					{Name: "users", Columns: []models.Column{
						{Name: "id", DataType: "bigint"},
						{Name: "email", DataType: "text"},
					}},
					{Name: "orders", Columns: []models.Column{
						{Name: "id", DataType: "bigint"},
						{Name: "total", DataType: "numeric"},
					}},
				},
			}, nil
		},
	}

	f := &fixture{
		embedder:  embedder,
		store:     store,
		cache:     sc,
		generator: &llm.MockGenerator{},
		targets:   targets,
		configs:   &mockConfigRepo{},
		userID:    uuid.New(),
	}
	f.pipeline = New(
		embedder, sc, intent.NewMatcher(intent.DefaultPatterns()),
		f.generator, targets, f.configs,
		&config.PipelineConfig{SimilarityThreshold: 0.88, IntentConfidenceThreshold: 0.8, CacheTTL: time.Hour},
		logger,
	)
	return f
}

func (f *fixture) ask(t *testing.T, question string) (*Result, error) {
	t.Helper()
	return f.pipeline.Ask(context.Background(), f.userID, "salesdb", question, nil)
}

func TestAsk_IntentPath(t *testing.T) {
	f := newFixture(t)

	result, err := f.ask(t, "show all users")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, SourceIntent, result.Source)
	assert.Equal(t, 0.95, result.Confidence)
	assert.False(t, result.ServedFromCache)
	assert.Contains(t, f.targets.LastSQL, `"users"`)
	assert.Contains(t, f.targets.LastSQL, "LIMIT 100")
	assert.Zero(t, f.generator.GenerateSQLCalls)

	entries, err := f.store.Entries(context.Background(), f.userID.String())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "successful results are cached")
}

func TestAsk_CacheHitShortCircuits(t *testing.T) {
	f := newFixture(t)

	first, err := f.ask(t, "show all users")
	require.NoError(t, err)
	require.False(t, first.ServedFromCache)
	require.Equal(t, 1, f.targets.ExecuteCalls)

	second, err := f.ask(t, "show all users")
	require.NoError(t, err)

	assert.True(t, second.ServedFromCache)
	assert.Equal(t, SourceCache, second.Source)
	assert.InDelta(t, 1.0, second.Similarity, 1e-6)
	assert.Equal(t, first.SQLQuery, second.SQLQuery)
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, 1, f.targets.ExecuteCalls, "cache hit must not re-execute")
	assert.Zero(t, f.generator.GenerateSQLCalls)
}

func TestAsk_ListTables(t *testing.T) {
	f := newFixture(t)

	result, err := f.ask(t, "list all tables")
	require.NoError(t, err)

	assert.Equal(t, []string{"users", "orders"}, result.Tables)
	assert.Equal(t, SourceIntent, result.Source)
	assert.Zero(t, f.targets.ExecuteCalls)

	entries, err := f.store.Entries(context.Background(), f.userID.String())
	require.NoError(t, err)
	assert.Empty(t, entries, "table listings are not cached")
}

func TestAsk_FindWhereParameterized(t *testing.T) {
	f := newFixture(t)

	_, err := f.ask(t, `find users where email = 'bob@example.com'`)
	require.NoError(t, err)

	assert.Contains(t, f.targets.LastSQL, "$1")
	assert.NotContains(t, f.targets.LastSQL, "bob@example.com")
	require.Len(t, f.targets.LastArgs, 1)
	assert.Equal(t, "bob@example.com", f.targets.LastArgs[0])
}

func TestAsk_LLMPath(t *testing.T) {
	f := newFixture(t)
	f.generator.GenerateSQLFunc = func(ctx context.Context, question string, snapshot *models.SchemaSnapshot, history []models.HistoryTurn) (*llm.GeneratedQuery, error) {
		require.NotNil(t, snapshot)
		return &llm.GeneratedQuery{Query: "SELECT AVG(total) FROM orders;", Table: "orders"}, nil
	}

	result, err := f.ask(t, "what is the average order total")
	require.NoError(t, err)

	assert.Equal(t, SourceLLM, result.Source)
	assert.Equal(t, 1, f.generator.GenerateSQLCalls)
	assert.Equal(t, "SELECT AVG(total) FROM orders", f.targets.LastSQL, "trailing semicolon stripped")

	entries, err := f.store.Entries(context.Background(), f.userID.String())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAsk_LLMHistoryForwarded(t *testing.T) {
	f := newFixture(t)
	var gotHistory []models.HistoryTurn
	f.generator.GenerateSQLFunc = func(ctx context.Context, question string, snapshot *models.SchemaSnapshot, history []models.HistoryTurn) (*llm.GeneratedQuery, error) {
		gotHistory = history
		return &llm.GeneratedQuery{Query: "SELECT id FROM orders"}, nil
	}

	history := []models.HistoryTurn{{Role: "user", Content: "earlier question"}}
	_, err := f.pipeline.Ask(context.Background(), f.userID, "salesdb", "and the totals?", history)
	require.NoError(t, err)
	assert.Equal(t, history, gotHistory)
}

func TestAsk_LLMUnsafeStatementRejected(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"update", "UPDATE users SET email = 'x'"},
		{"delete", "DELETE FROM orders"},
		{"multiple statements", "SELECT 1; DROP TABLE users"},
		{"modifying cte", "WITH d AS (DELETE FROM orders RETURNING id) SELECT * FROM d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.generator.GenerateSQLFunc = func(ctx context.Context, question string, snapshot *models.SchemaSnapshot, history []models.HistoryTurn) (*llm.GeneratedQuery, error) {
				return &llm.GeneratedQuery{Query: tt.query}, nil
			}

			_, err := f.ask(t, "please do something odd")
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindUnsafeStatement))
			assert.Zero(t, f.targets.ExecuteCalls)

			entries, storeErr := f.store.Entries(context.Background(), f.userID.String())
			require.NoError(t, storeErr)
			assert.Empty(t, entries, "rejected statements are not cached")
		})
	}
}

func TestAsk_LLMUnknownTableRejected(t *testing.T) {
	f := newFixture(t)
	f.generator.GenerateSQLFunc = func(ctx context.Context, question string, snapshot *models.SchemaSnapshot, history []models.HistoryTurn) (*llm.GeneratedQuery, error) {
		return &llm.GeneratedQuery{Query: "SELECT * FROM invoices"}, nil
	}

	_, err := f.ask(t, "sum up the invoices for me")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnsafeStatement))
	assert.Zero(t, f.targets.ExecuteCalls)
}

func TestAsk_IntentBuildFailureFallsThroughToLLM(t *testing.T) {
	f := newFixture(t)
	f.generator.GenerateSQLFunc = func(ctx context.Context, question string, snapshot *models.SchemaSnapshot, history []models.HistoryTurn) (*llm.GeneratedQuery, error) {
		return &llm.GeneratedQuery{Query: "SELECT * FROM users LIMIT 10"}, nil
	}

	// "widgets" matches the list pattern but resolves to no table.
	result, err := f.ask(t, "show all widgets")
	require.NoError(t, err)

	assert.Equal(t, SourceLLM, result.Source)
	assert.Equal(t, 1, f.generator.GenerateSQLCalls)
}

func TestAsk_EmbedFailureSkipsCacheButAnswers(t *testing.T) {
	f := newFixture(t)
	f.embedder.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding endpoint down")
	}

	result, err := f.ask(t, "show all users")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.ServedFromCache)
	assert.False(t, result.CacheWriteFailed)

	entries, err := f.store.Entries(context.Background(), f.userID.String())
	require.NoError(t, err)
	assert.Empty(t, entries, "no embedding means no cache write")
}

func TestAsk_CacheOutageDegradesToMiss(t *testing.T) {
	f := newFixture(t)
	f.store.FailWith = errors.New("connection refused")

	result, err := f.ask(t, "show all users")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.ServedFromCache)
	assert.True(t, result.CacheWriteFailed)
	assert.Equal(t, 1, f.targets.ExecuteCalls)
}

func TestAsk_NoCacheWriteOnFailedExecution(t *testing.T) {
	f := newFixture(t)
	f.targets.ExecuteFunc = func(ctx context.Context, cfg *models.DatabaseConfig, sqlQuery string, args ...any) (*models.QueryResult, error) {
		return nil, apperrors.New(apperrors.KindExecution, "relation does not exist")
	}

	_, err := f.ask(t, "show all users")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindExecution))

	entries, storeErr := f.store.Entries(context.Background(), f.userID.String())
	require.NoError(t, storeErr)
	assert.Empty(t, entries)
}

func TestAsk_CrossUserIsolation(t *testing.T) {
	f := newFixture(t)

	_, err := f.ask(t, "show all users")
	require.NoError(t, err)
	require.Equal(t, 1, f.targets.ExecuteCalls)

	otherUser := uuid.New()
	result, err := f.pipeline.Ask(context.Background(), otherUser, "salesdb", "show all users", nil)
	require.NoError(t, err)

	assert.False(t, result.ServedFromCache, "one user's cache must not serve another")
	assert.Equal(t, 2, f.targets.ExecuteCalls)
}

func TestAsk_ValidationErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.Ask(context.Background(), f.userID, "salesdb", "   ", nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = f.pipeline.Ask(context.Background(), f.userID, "", "show all users", nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestAsk_UnknownDatabase(t *testing.T) {
	f := newFixture(t)
	f.configs.GetFunc = func(ctx context.Context, userID uuid.UUID, name string) (*models.DatabaseConfig, error) {
		return nil, apperrors.ErrNotFound
	}

	_, err := f.ask(t, "show all users")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Contains(t, err.Error(), "salesdb")
}

func TestAsk_SnapshotFailure(t *testing.T) {
	f := newFixture(t)
	f.targets.SnapshotFunc = func(ctx context.Context, cfg *models.DatabaseConfig) (*models.SchemaSnapshot, error) {
		return nil, apperrors.New(apperrors.KindSchemaDiscovery, "target unreachable")
	}

	_, err := f.ask(t, "show all users")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindSchemaDiscovery))
}

func TestDebugIntent(t *testing.T) {
	f := newFixture(t)

	report, err := f.pipeline.DebugIntent(context.Background(), f.userID, "salesdb", "count records in users")
	require.NoError(t, err)

	assert.True(t, report.Matched)
	assert.True(t, report.MeetsThreshold)
	assert.Equal(t, "users", report.Table)
	assert.Contains(t, report.SQL, "COUNT(*)")
	assert.Zero(t, f.targets.ExecuteCalls, "debug must not execute")
}

func TestDebugIntent_NoMatch(t *testing.T) {
	f := newFixture(t)

	report, err := f.pipeline.DebugIntent(context.Background(), f.userID, "", "why is the sky blue")
	require.NoError(t, err)
	assert.False(t, report.Matched)
}

func TestDebugSimilarity(t *testing.T) {
	f := newFixture(t)

	report, err := f.pipeline.DebugSimilarity(context.Background(), "show all users", "show all users")
	require.NoError(t, err)

	assert.Equal(t, 0.88, report.Threshold)
	assert.True(t, report.WouldHit)
	assert.InDelta(t, 1.0, report.Similarity, 1e-6)
}

func TestDebugSimilarity_UnrelatedQuestions(t *testing.T) {
	f := newFixture(t)
	f.embedder.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		v := make([]float32, 8)
		if text == "show all users" {
			v[0] = 1
		} else {
			v[1] = 1
		}
		return v, nil
	}

	report, err := f.pipeline.DebugSimilarity(context.Background(), "show all users", "average order total")
	require.NoError(t, err)

	assert.InDelta(t, 0.0, report.Similarity, 1e-6)
	assert.False(t, report.WouldHit)
}

func TestDebugSimilarity_IgnoresCacheOutage(t *testing.T) {
	f := newFixture(t)
	f.store.FailWith = errors.New("cache store unreachable")

	report, err := f.pipeline.DebugSimilarity(context.Background(), "show all users", "show all users")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, report.Similarity, 1e-6)
}

func TestClearCache(t *testing.T) {
	f := newFixture(t)

	_, err := f.ask(t, "show all users")
	require.NoError(t, err)

	cleared, err := f.pipeline.ClearCache(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	result, err := f.ask(t, "show all users")
	require.NoError(t, err)
	assert.False(t, result.ServedFromCache)
}

func TestCheckHealth(t *testing.T) {
	f := newFixture(t)

	h := f.pipeline.CheckHealth(context.Background())
	assert.False(t, h.Degraded)
	assert.Equal(t, "ok", h.Cache)

	f.store.FailWith = errors.New("connection refused")
	h = f.pipeline.CheckHealth(context.Background())
	assert.True(t, h.Degraded)
	assert.NotEqual(t, "ok", h.Cache)
}
