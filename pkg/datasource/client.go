package datasource

import (
	"context"

	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/config"
	"github.com/sayandkrishna/querypilot/pkg/models"
)

// Client bundles pool management, execution and schema discovery behind
// one surface keyed by target-database config.
type Client struct {
	pools    *PoolManager
	executor *Executor
	schemas  *SchemaReader
}

// NewClient creates a target-database client.
func NewClient(targets *config.TargetsConfig, pipeline *config.PipelineConfig, logger *zap.Logger) *Client {
	return &Client{
		pools:    NewPoolManager(targets, logger),
		executor: NewExecutor(pipeline.RowCap, pipeline.QueryTimeout, targets.AcquireTimeout, logger),
		schemas:  NewSchemaReader(logger),
	}
}

// Snapshot returns the schema snapshot of the given target database.
func (c *Client) Snapshot(ctx context.Context, cfg *models.DatabaseConfig) (*models.SchemaSnapshot, error) {
	pool, err := c.pools.GetOrCreatePool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return c.schemas.Snapshot(ctx, pool, cfg)
}

// Execute runs one validated statement against the given target database.
func (c *Client) Execute(ctx context.Context, cfg *models.DatabaseConfig, sqlQuery string, args ...any) (*models.QueryResult, error) {
	pool, err := c.pools.GetOrCreatePool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return c.executor.Execute(ctx, pool, sqlQuery, args...)
}

// Invalidate drops the pool and cached schema for a (user, database) pair.
// Called when the stored config is saved or deleted.
func (c *Client) Invalidate(userID, dbName string) {
	c.pools.Invalidate(userID, dbName)
	c.schemas.Invalidate(userID, dbName)
}

// Stats exposes pool manager statistics.
func (c *Client) Stats() PoolStats {
	return c.pools.Stats()
}

// Close shuts down all pools.
func (c *Client) Close() error {
	return c.pools.Close()
}
