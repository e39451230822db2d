package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/models"
)

const (
	entryKeyPrefix = "semantic_cache"
	indexKeyPrefix = "semantic_index"
)

// RedisStore persists cache entries in Redis. Each entry is a JSON value
// under semantic_cache:{owner}:{key}; a per-owner set semantic_index:{owner}
// tracks the entry keys. Both carry the entry TTL so orphaned index members
// age out with their entries.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore creates a Redis-backed cache store.
func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger.Named("cache_store"),
	}
}

func entryKey(owner, key string) string {
	return fmt.Sprintf("%s:%s:%s", entryKeyPrefix, owner, key)
}

func indexKey(owner string) string {
	return fmt.Sprintf("%s:%s", indexKeyPrefix, owner)
}

func (s *RedisStore) Entries(ctx context.Context, owner string) ([]*models.CacheEntry, error) {
	keys, err := s.client.SMembers(ctx, indexKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cache index: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	fullKeys := make([]string, len(keys))
	for i, k := range keys {
		fullKeys[i] = entryKey(owner, k)
	}

	values, err := s.client.MGet(ctx, fullKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entries: %w", err)
	}

	var entries []*models.CacheEntry
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Entry expired but its index member outlived it. Prune.
			stale = append(stale, keys[i])
			continue
		}

		var entry models.CacheEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			s.logger.Warn("Dropping undecodable cache entry",
				zap.String("key", keys[i]), zap.Error(err))
			stale = append(stale, keys[i])
			continue
		}
		entries = append(entries, &entry)
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, indexKey(owner), stale...).Err(); err != nil {
			s.logger.Debug("Failed to prune stale index members", zap.Error(err))
		}
	}

	return entries, nil
}

func (s *RedisStore) Put(ctx context.Context, owner, key string, entry *models.CacheEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, entryKey(owner, key), data, ttl)
	pipe.SAdd(ctx, indexKey(owner), key)
	pipe.Expire(ctx, indexKey(owner), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

func (s *RedisStore) Clear(ctx context.Context, owner string) (int, error) {
	keys, err := s.client.SMembers(ctx, indexKey(owner)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read cache index: %w", err)
	}

	fullKeys := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		fullKeys = append(fullKeys, entryKey(owner, k))
	}
	fullKeys = append(fullKeys, indexKey(owner))

	if err := s.client.Del(ctx, fullKeys...).Err(); err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}

	return len(keys), nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure RedisStore implements Store at compile time.
var _ Store = (*RedisStore)(nil)
