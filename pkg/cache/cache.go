package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/embedding"
	"github.com/sayandkrishna/querypilot/pkg/models"
)

// SemanticCache matches incoming questions against stored entries by
// embedding similarity. A nil store disables the cache: every lookup
// misses and every write is a no-op.
type SemanticCache struct {
	store     Store
	threshold float64
	ttl       time.Duration
	logger    *zap.Logger
}

// Hit is a successful cache lookup.
type Hit struct {
	Entry      *models.CacheEntry
	Similarity float64
}

// New creates a semantic cache. threshold is the minimum cosine similarity
// for a hit; ttl is how long entries live.
func New(store Store, threshold float64, ttl time.Duration, logger *zap.Logger) *SemanticCache {
	return &SemanticCache{
		store:     store,
		threshold: threshold,
		ttl:       ttl,
		logger:    logger.Named("cache"),
	}
}

// Enabled reports whether a backing store is configured.
func (c *SemanticCache) Enabled() bool {
	return c.store != nil
}

// Lookup finds the stored entry most similar to the given embedding,
// provided the similarity meets the threshold. Returns nil on a miss.
// Store failures are logged and reported as a miss.
//
// Among equally similar entries the most recently created wins. On a hit
// the entry's hit counters are updated best-effort.
func (c *SemanticCache) Lookup(ctx context.Context, owner string, emb []float32) *Hit {
	if c.store == nil {
		return nil
	}

	entries, err := c.store.Entries(ctx, owner)
	if err != nil {
		c.logger.Warn("Cache lookup degraded to miss", zap.Error(err))
		return nil
	}

	var best *models.CacheEntry
	var bestSim float64
	for _, entry := range entries {
		sim := embedding.Cosine(emb, entry.Embedding)
		if sim < c.threshold {
			continue
		}
		if best == nil || sim > bestSim || (sim == bestSim && entry.CreatedAt.After(best.CreatedAt)) {
			best = entry
			bestSim = sim
		}
	}

	if best == nil {
		return nil
	}

	best.HitCount++
	best.LastAccessed = time.Now()
	best.SimilaritySum += bestSim
	if err := c.store.Put(ctx, owner, EntryKey(best.QueryText), best, c.ttl); err != nil {
		c.logger.Debug("Failed to update hit counters", zap.Error(err))
	}

	c.logger.Info("Cache hit",
		zap.String("owner", owner),
		zap.Float64("similarity", bestSim),
		zap.Int("hit_count", best.HitCount))

	return &Hit{Entry: best, Similarity: bestSim}
}

// Store writes a resolved query to the cache. Returns an error so callers
// can report a degraded response, but a failed write must never fail the
// query itself.
func (c *SemanticCache) Store(ctx context.Context, owner, queryText string, emb []float32, sqlQuery string, result *models.QueryResult) error {
	if c.store == nil {
		return nil
	}

	entry := &models.CacheEntry{
		Owner:     owner,
		QueryText: queryText,
		Embedding: emb,
		SQLQuery:  sqlQuery,
		Result:    result,
		CreatedAt: time.Now(),
	}

	if err := c.store.Put(ctx, owner, EntryKey(queryText), entry, c.ttl); err != nil {
		c.logger.Warn("Cache write failed", zap.String("owner", owner), zap.Error(err))
		return err
	}

	return nil
}

// Threshold returns the configured hit threshold.
func (c *SemanticCache) Threshold() float64 {
	return c.threshold
}

// Stats summarizes the owner's live entries.
func (c *SemanticCache) Stats(ctx context.Context, owner string) (*models.CacheStats, error) {
	if c.store == nil {
		return &models.CacheStats{}, nil
	}

	entries, err := c.store.Entries(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache stats: %w", err)
	}

	stats := &models.CacheStats{EntryCount: len(entries)}
	var simSum float64
	for _, entry := range entries {
		stats.HitCountTotal += entry.HitCount
		simSum += entry.SimilaritySum
	}
	if stats.HitCountTotal > 0 {
		stats.AvgSimilarityOnHits = simSum / float64(stats.HitCountTotal)
	}

	return stats, nil
}

// Clear removes all of the owner's entries and returns how many were
// removed.
func (c *SemanticCache) Clear(ctx context.Context, owner string) (int, error) {
	if c.store == nil {
		return 0, nil
	}
	return c.store.Clear(ctx, owner)
}

// Ping reports whether the backing store is reachable. An unconfigured
// cache reports an error so health checks show it as degraded.
func (c *SemanticCache) Ping(ctx context.Context) error {
	if c.store == nil {
		return fmt.Errorf("cache store not configured")
	}
	return c.store.Ping(ctx)
}
