package datasource

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
	"github.com/sayandkrishna/querypilot/pkg/models"
)

// schemaQuery lists every column of every ordinary table in the public
// schema, in declaration order.
const schemaQuery = `
	SELECT c.table_name, c.column_name, c.data_type, c.is_nullable
	FROM information_schema.columns c
	JOIN information_schema.tables t
	  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
	WHERE c.table_schema = 'public' AND t.table_type = 'BASE TABLE'
	ORDER BY c.table_name, c.ordinal_position`

// SchemaReader derives schema snapshots from target databases. Snapshots
// are cached per (user, database) for the process lifetime; a concurrent
// recompute of the same snapshot is harmless, last write wins.
type SchemaReader struct {
	mu     sync.RWMutex
	cache  map[string]*models.SchemaSnapshot
	logger *zap.Logger
}

// NewSchemaReader creates a schema reader with an empty cache.
func NewSchemaReader(logger *zap.Logger) *SchemaReader {
	return &SchemaReader{
		cache:  make(map[string]*models.SchemaSnapshot),
		logger: logger.Named("schema"),
	}
}

// Snapshot returns the schema of the given target database, reading it
// from information_schema on first use and from cache afterwards.
func (r *SchemaReader) Snapshot(ctx context.Context, pool *pgxpool.Pool, cfg *models.DatabaseConfig) (*models.SchemaSnapshot, error) {
	key := cfg.PoolKey()

	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	snapshot, err := r.read(ctx, pool, cfg.Name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[key] = snapshot
	r.mu.Unlock()

	r.logger.Info("Schema snapshot taken",
		zap.String("database", cfg.Name),
		zap.Int("tables", len(snapshot.Tables)))

	return snapshot, nil
}

func (r *SchemaReader) read(ctx context.Context, pool *pgxpool.Pool, dbName string) (*models.SchemaSnapshot, error) {
	rows, err := pool.Query(ctx, schemaQuery)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindSchemaDiscovery,
			"failed to read target database schema", err)
	}
	defer rows.Close()

	snapshot := &models.SchemaSnapshot{DatabaseName: dbName}
	byName := make(map[string]int)

	for rows.Next() {
		var tableName, columnName, dataType, isNullable string
		if err := rows.Scan(&tableName, &columnName, &dataType, &isNullable); err != nil {
			return nil, apperrors.Wrap(apperrors.KindSchemaDiscovery,
				"failed to scan schema row", err)
		}

		idx, ok := byName[tableName]
		if !ok {
			snapshot.Tables = append(snapshot.Tables, models.TableSchema{Name: tableName})
			idx = len(snapshot.Tables) - 1
			byName[tableName] = idx
		}
		snapshot.Tables[idx].Columns = append(snapshot.Tables[idx].Columns, models.Column{
			Name:       columnName,
			DataType:   dataType,
			IsNullable: isNullable == "YES",
		})
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindSchemaDiscovery,
			"error iterating schema rows", err)
	}

	return snapshot, nil
}

// Invalidate drops the cached snapshot for a (user, database) pair. Called
// when the stored config changes.
func (r *SchemaReader) Invalidate(userID, dbName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, userID+":"+dbName)
}
