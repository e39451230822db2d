// Package datasource connects to the target databases users register,
// executes resolved statements against them, and derives their schema
// snapshots.
package datasource

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
	"github.com/sayandkrishna/querypilot/pkg/config"
	"github.com/sayandkrishna/querypilot/pkg/logging"
	"github.com/sayandkrishna/querypilot/pkg/models"
	"github.com/sayandkrishna/querypilot/pkg/retry"
)

const (
	DefaultPoolTTLMinutes  = 5
	DefaultCleanupInterval = 1 * time.Minute
	DefaultMaxPoolsPerUser = 10
	DefaultPoolMaxConns    = 5
	DefaultPoolMinConns    = 1
)

// PoolManager manages connection pools to target databases with TTL-based
// expiry and automatic cleanup. Pools are keyed "{userID}:{dbName}" so
// different users never share a pool even to the same database.
type PoolManager struct {
	mu              sync.RWMutex
	pools           map[string]*managedPool
	ttl             time.Duration
	maxPoolsPerUser int
	poolMaxConns    int32
	acquireTimeout  time.Duration
	stopped         bool
	stopChan        chan struct{}
	logger          *zap.Logger
}

type managedPool struct {
	pool     *pgxpool.Pool
	lastUsed time.Time
	mu       sync.Mutex
}

// NewPoolManager creates a pool manager with the given configuration.
// Starts a background cleanup goroutine that runs until Close() is called.
func NewPoolManager(cfg *config.TargetsConfig, logger *zap.Logger) *PoolManager {
	ttlMinutes := cfg.PoolTTLMinutes
	if ttlMinutes <= 0 {
		ttlMinutes = DefaultPoolTTLMinutes
	}
	maxPools := cfg.MaxPoolsPerUser
	if maxPools <= 0 {
		maxPools = DefaultMaxPoolsPerUser
	}
	maxConns := cfg.PoolMaxConns
	if maxConns <= 0 {
		maxConns = DefaultPoolMaxConns
	}
	acquireTimeout := cfg.AcquireTimeout
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}

	m := &PoolManager{
		pools:           make(map[string]*managedPool),
		ttl:             time.Duration(ttlMinutes) * time.Minute,
		maxPoolsPerUser: maxPools,
		poolMaxConns:    maxConns,
		acquireTimeout:  acquireTimeout,
		stopChan:        make(chan struct{}),
		logger:          logger.Named("pool_manager"),
	}

	go m.cleanupExpiredPools()
	return m
}

// countPoolsForUser counts active pools for a specific user.
// Caller must hold m.mu.
func (m *PoolManager) countPoolsForUser(userID string) int {
	count := 0
	for key := range m.pools {
		if strings.HasPrefix(key, userID+":") {
			count++
		}
	}
	return count
}

// GetOrCreatePool returns the pool for the given target database config,
// creating it if needed. Existing pools are health-checked and recreated
// when unhealthy. Returns a resource-exhaustion error when the user has
// too many live pools.
func (m *PoolManager) GetOrCreatePool(ctx context.Context, cfg *models.DatabaseConfig) (*pgxpool.Pool, error) {
	key := cfg.PoolKey()

	m.mu.RLock()
	managed, exists := m.pools[key]
	m.mu.RUnlock()

	if exists {
		managed.mu.Lock()

		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err := retry.Do(healthCtx, retry.DefaultConfig(), func() error {
			return managed.pool.Ping(healthCtx)
		})

		if err != nil {
			m.logger.Warn("Pool unhealthy, recreating",
				zap.String("key", key),
				zap.String("error", logging.SanitizeError(err)),
			)
			managed.mu.Unlock()
			m.removePool(key)
			return m.createNewPool(ctx, key, cfg)
		}

		managed.lastUsed = time.Now()
		managed.mu.Unlock()
		return managed.pool, nil
	}

	return m.createNewPool(ctx, key, cfg)
}

// createNewPool creates a new connection pool with retry logic.
// Caller must NOT hold any locks.
func (m *PoolManager) createNewPool(ctx context.Context, key string, cfg *models.DatabaseConfig) (*pgxpool.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock.
	if managed, exists := m.pools[key]; exists && managed != nil {
		managed.mu.Lock()
		defer managed.mu.Unlock()
		managed.lastUsed = time.Now()
		return managed.pool, nil
	}

	userID := cfg.UserID.String()
	userPoolCount := m.countPoolsForUser(userID)
	if userPoolCount >= m.maxPoolsPerUser {
		m.logger.Warn("User reached max pools limit",
			zap.String("user_id", userID),
			zap.Int("current", userPoolCount),
			zap.Int("max", m.maxPoolsPerUser),
		)
		return nil, apperrors.Newf(apperrors.KindResourceExhausted,
			"maximum of %d concurrent database connections reached", m.maxPoolsPerUser)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		m.logger.Error("Failed to parse connection string",
			zap.String("key", key),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = m.poolMaxConns
	poolConfig.MinConns = DefaultPoolMinConns
	poolConfig.MaxConnIdleTime = m.ttl
	poolConfig.ConnConfig.ConnectTimeout = m.acquireTimeout

	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*pgxpool.Pool, error) {
		return pgxpool.NewWithConfig(ctx, poolConfig)
	})
	if err != nil {
		m.logger.Error("Failed to create pool after retries",
			zap.String("key", key),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, apperrors.Wrap(apperrors.KindExecution,
			fmt.Sprintf("failed to connect to database %q", cfg.Name), err)
	}

	m.pools[key] = &managedPool{
		pool:     pool,
		lastUsed: time.Now(),
	}

	m.logger.Info("Created new target pool",
		zap.String("key", key),
		zap.Int("user_total_pools", userPoolCount+1),
	)

	return pool, nil
}

// Invalidate drops the pool for a (user, database) pair, closing it. Called
// when the stored config changes so the next query reconnects with fresh
// credentials.
func (m *PoolManager) Invalidate(userID, dbName string) {
	m.removePool(fmt.Sprintf("%s:%s", userID, dbName))
}

// removePool removes a pool and closes it. Caller must NOT hold m.mu.
func (m *PoolManager) removePool(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if managed, exists := m.pools[key]; exists && managed != nil {
		if managed.pool != nil {
			managed.pool.Close()
		}
		delete(m.pools, key)
		m.logger.Debug("Removed pool", zap.String("key", key))
	}
}

// cleanupExpiredPools runs periodically to remove idle pools.
func (m *PoolManager) cleanupExpiredPools() {
	ticker := time.NewTicker(DefaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performCleanup()
		case <-m.stopChan:
			return
		}
	}
}

func (m *PoolManager) performCleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}

	now := time.Now()
	var expiredKeys []string

	for key, managed := range m.pools {
		if managed == nil {
			continue
		}
		managed.mu.Lock()
		expired := now.Sub(managed.lastUsed) > m.ttl
		managed.mu.Unlock()

		if expired {
			expiredKeys = append(expiredKeys, key)
		}
	}

	for _, key := range expiredKeys {
		if managed, exists := m.pools[key]; exists && managed != nil {
			if managed.pool != nil {
				managed.pool.Close()
			}
			delete(m.pools, key)
		}
	}

	if len(expiredKeys) > 0 {
		m.logger.Info("Cleaned up idle target pools",
			zap.Int("count", len(expiredKeys)),
			zap.Int("remaining", len(m.pools)),
		)
	}
}

// Close closes all pools and stops the cleanup goroutine. Idempotent.
func (m *PoolManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil
	}

	m.stopped = true
	close(m.stopChan)

	for _, managed := range m.pools {
		if managed != nil && managed.pool != nil {
			managed.pool.Close()
		}
	}

	m.pools = make(map[string]*managedPool)
	m.logger.Info("Pool manager closed")
	return nil
}

// Stats returns statistics about the pool manager state. Safe to call
// concurrently.
func (m *PoolManager) Stats() PoolStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	stats := PoolStats{
		TotalPools:      len(m.pools),
		MaxPoolsPerUser: m.maxPoolsPerUser,
		TTLMinutes:      int(m.ttl.Minutes()),
		PoolsByUser:     make(map[string]int),
	}

	for key, managed := range m.pools {
		if idx := strings.Index(key, ":"); idx > 0 {
			stats.PoolsByUser[key[:idx]]++
		}

		if managed != nil {
			managed.mu.Lock()
			idleSeconds := int(now.Sub(managed.lastUsed).Seconds())
			managed.mu.Unlock()
			if idleSeconds > stats.OldestIdleSeconds {
				stats.OldestIdleSeconds = idleSeconds
			}
		}
	}

	return stats
}

// PoolStats contains statistics about the pool manager state.
type PoolStats struct {
	TotalPools        int            `json:"total_pools"`
	MaxPoolsPerUser   int            `json:"max_pools_per_user"`
	TTLMinutes        int            `json:"ttl_minutes"`
	PoolsByUser       map[string]int `json:"pools_by_user"`
	OldestIdleSeconds int            `json:"oldest_idle_seconds"`
}
