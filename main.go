package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/auth"
	"github.com/sayandkrishna/querypilot/pkg/cache"
	"github.com/sayandkrishna/querypilot/pkg/config"
	"github.com/sayandkrishna/querypilot/pkg/crypto"
	"github.com/sayandkrishna/querypilot/pkg/database"
	"github.com/sayandkrishna/querypilot/pkg/datasource"
	"github.com/sayandkrishna/querypilot/pkg/embedding"
	"github.com/sayandkrishna/querypilot/pkg/handlers"
	"github.com/sayandkrishna/querypilot/pkg/intent"
	"github.com/sayandkrishna/querypilot/pkg/llm"
	"github.com/sayandkrishna/querypilot/pkg/logging"
	"github.com/sayandkrishna/querypilot/pkg/middleware"
	"github.com/sayandkrishna/querypilot/pkg/pipeline"
	"github.com/sayandkrishna/querypilot/pkg/repositories"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Host),
		zap.String("redis", cfg.Redis.Addr()),
		zap.String("llm_provider", cfg.LLM.Provider))

	ctx := context.Background()

	// Migrations run over database/sql; the application itself uses pgx
	// pools.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		// The cache is optional; start degraded rather than refuse to
		// serve.
		logger.Warn("Redis unavailable, semantic cache disabled", zap.Error(err))
		redisClient = nil
	}
	var store cache.Store
	if redisClient != nil {
		store = cache.NewRedisStore(redisClient, logger)
	}
	semanticCache := cache.New(store, cfg.Pipeline.SimilarityThreshold, cfg.Pipeline.CacheTTL, logger)

	embedder, err := embedding.NewClient(&cfg.Embedding, logger)
	if err != nil {
		logger.Fatal("Failed to create embedding client", zap.Error(err))
	}
	if err := embedder.Probe(ctx); err != nil {
		logger.Fatal("Embedding endpoint probe failed", zap.Error(err))
	}

	chatClient, err := llm.NewChatClient(&cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}
	generator := llm.NewSQLGenerator(chatClient, cfg.LLM.MaxRetries, cfg.LLM.Timeout, logger)

	encryptor, err := crypto.NewCredentialEncryptor(cfg.CredentialsKey)
	if err != nil {
		logger.Fatal("Failed to create credential encryptor", zap.Error(err))
	}

	authService, err := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("Failed to create auth service", zap.Error(err))
	}

	patterns := intent.DefaultPatterns()
	if cfg.Pipeline.IntentPatternsPath != "" {
		patterns, err = intent.LoadPatterns(cfg.Pipeline.IntentPatternsPath)
		if err != nil {
			logger.Fatal("Failed to load intent patterns", zap.Error(err))
		}
	}

	userRepo := repositories.NewUserRepository(db)
	configRepo := repositories.NewDBConfigRepository(db, encryptor)
	conversationRepo := repositories.NewConversationRepository(db)

	targetClient := datasource.NewClient(&cfg.Targets, &cfg.Pipeline, logger)
	defer func() { _ = targetClient.Close() }()

	queryPipeline := pipeline.New(
		embedder, semanticCache, intent.NewMatcher(patterns),
		generator, targetClient, configRepo,
		&cfg.Pipeline, logger,
	)

	authMW := auth.NewMiddleware(authService, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, queryPipeline, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(userRepo, authService, logger).RegisterRoutes(mux)
	handlers.NewDBConfigHandler(configRepo, targetClient, targetClient, logger).RegisterRoutes(mux, authMW)
	handlers.NewAskHandler(queryPipeline, conversationRepo, logger).RegisterRoutes(mux, authMW)
	handlers.NewCacheHandler(queryPipeline, logger).RegisterRoutes(mux, authMW)

	handler := middleware.RequestLogger(logger)(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting querypilot", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
