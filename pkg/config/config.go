// Package config loads querypilot configuration from config.yaml with
// environment variable overrides. Secrets only come from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for querypilot.
// Environment variables always override YAML values for fields that support
// both. Secrets (PGPASSWORD, JWT_SECRET, LLM_API_KEY, CREDENTIALS_KEY) must
// only come from environment variables.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Auth      AuthConfig      `yaml:"auth"`
	Targets   TargetsConfig   `yaml:"targets"`

	// CredentialsKey encrypts stored target-database passwords at rest.
	// Base64-encoded 32-byte key or any passphrase (hashed to 32 bytes).
	CredentialsKey string `yaml:"-" env:"CREDENTIALS_KEY"`
}

// DatabaseConfig holds the application PostgreSQL database configuration
// (users, database configs, conversations). Target databases registered by
// users are stored in this database, not configured here.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"querypilot"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"querypilot"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// RedisConfig holds the semantic cache store configuration. An empty host
// disables the cache; the pipeline degrades to always-miss.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// EmbeddingConfig holds the embedding endpoint configuration. The endpoint
// is OpenAI-compatible (an inference server hosting a sentence-transformer
// model works the same way).
type EmbeddingConfig struct {
	Endpoint   string `yaml:"endpoint" env:"EMBEDDING_ENDPOINT" env-default:"http://localhost:8081/v1"`
	Model      string `yaml:"model" env:"EMBEDDING_MODEL" env-default:"sentence-transformers/all-MiniLM-L6-v2"`
	APIKey     string `yaml:"-" env:"EMBEDDING_API_KEY"`
	Dimensions int    `yaml:"dimensions" env:"EMBEDDING_DIMENSIONS" env-default:"384"`
}

// LLMConfig holds the SQL-generation model configuration.
type LLMConfig struct {
	// Provider selects the client implementation: "openai" (any
	// OpenAI-compatible endpoint) or "anthropic".
	Provider   string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint   string        `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"http://localhost:11434/v1"`
	Model      string        `yaml:"model" env:"LLM_MODEL" env-default:"llama3:latest"`
	APIKey     string        `yaml:"-" env:"LLM_API_KEY"`
	MaxRetries int           `yaml:"max_retries" env:"LLM_MAX_RETRIES" env-default:"2"`
	Timeout    time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"60s"`
}

// PipelineConfig holds the thresholds that steer the query pipeline.
type PipelineConfig struct {
	// SimilarityThreshold is the minimum cosine similarity for a semantic
	// cache hit.
	SimilarityThreshold float64 `yaml:"similarity_threshold" env:"SIMILARITY_THRESHOLD" env-default:"0.88"`
	// IntentConfidenceThreshold is the minimum pattern confidence for the
	// intent path to be taken instead of the LLM.
	IntentConfidenceThreshold float64 `yaml:"intent_confidence_threshold" env:"INTENT_CONFIDENCE_THRESHOLD" env-default:"0.8"`
	// CacheTTL is how long cache entries live.
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL" env-default:"1h"`
	// RowCap is the maximum number of rows a query may return.
	RowCap int `yaml:"row_cap" env:"ROW_CAP" env-default:"1000"`
	// QueryTimeout bounds execution of a single statement.
	QueryTimeout time.Duration `yaml:"query_timeout" env:"QUERY_TIMEOUT" env-default:"30s"`
	// IntentPatternsPath optionally points at a YAML file replacing the
	// built-in intent rules.
	IntentPatternsPath string `yaml:"intent_patterns_path" env:"INTENT_PATTERNS_PATH" env-default:""`
}

// AuthConfig holds token issuance configuration.
type AuthConfig struct {
	JWTSecret string        `yaml:"-" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"30m"`
}

// TargetsConfig holds target-database connection pool settings.
type TargetsConfig struct {
	// PoolTTLMinutes is how long idle target pools are kept alive.
	PoolTTLMinutes int `yaml:"pool_ttl_minutes" env:"TARGET_POOL_TTL_MINUTES" env-default:"5"`
	// MaxPoolsPerUser limits concurrent target pools per user.
	MaxPoolsPerUser int `yaml:"max_pools_per_user" env:"TARGET_MAX_POOLS_PER_USER" env-default:"10"`
	// PoolMaxConns is the maximum number of connections per target pool.
	PoolMaxConns int32 `yaml:"pool_max_conns" env:"TARGET_POOL_MAX_CONNS" env-default:"5"`
	// AcquireTimeout bounds how long a pipeline waits for a pooled
	// connection before failing with a resource-exhaustion error.
	AcquireTimeout time.Duration `yaml:"acquire_timeout" env:"TARGET_ACQUIRE_TIMEOUT" env-default:"5s"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Pipeline.SimilarityThreshold <= 0 || c.Pipeline.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in (0, 1], got %v", c.Pipeline.SimilarityThreshold)
	}
	if c.Pipeline.IntentConfidenceThreshold <= 0 || c.Pipeline.IntentConfidenceThreshold > 1 {
		return fmt.Errorf("intent_confidence_threshold must be in (0, 1], got %v", c.Pipeline.IntentConfidenceThreshold)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string for the
// application database.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Addr returns the host:port address of the Redis server.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
