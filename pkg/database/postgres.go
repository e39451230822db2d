package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns     = 25
	defaultConnLifetime = time.Hour
	defaultConnIdleTime = 30 * time.Minute
	pingTimeout         = 5 * time.Second
)

// DB is the pool for the application's own database: user accounts, stored
// target credentials and conversation history. Pools to the databases users
// register live in pkg/datasource, not here.
type DB struct {
	*pgxpool.Pool
}

// Config holds application database pool settings. Zero values fall back
// to defaults sized for a single API instance.
type Config struct {
	URL             string
	MaxConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewConnection opens the application database pool and verifies it is
// reachable before returning.
func NewConnection(ctx context.Context, cfg *Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid application database URL: %w", err)
	}

	poolConfig.MaxConns = orDefault(cfg.MaxConnections, defaultMaxConns)
	poolConfig.MaxConnLifetime = orDefaultDuration(cfg.MaxConnLifetime, defaultConnLifetime)
	poolConfig.MaxConnIdleTime = orDefaultDuration(cfg.MaxConnIdleTime, defaultConnIdleTime)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open application database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("application database unreachable: %w", err)
	}

	return &DB{Pool: pool}, nil
}

func orDefault(v, fallback int32) int32 {
	if v <= 0 {
		return fallback
	}
	return v
}

func orDefaultDuration(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
