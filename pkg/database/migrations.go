package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// RunMigrations brings the application schema (users, registered target
// credentials, conversations) up to date from the migration files in
// migrationsPath. Already-applied versions are skipped, so every startup
// calls it unconditionally.
func RunMigrations(db *sql.DB, migrationsPath string, logger *zap.Logger) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver init failed: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to load migrations from %s: %w", migrationsPath, err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("Migration cleanup reported errors",
				zap.NamedError("source", srcErr),
				zap.NamedError("database", dbErr))
		}
	}()

	switch err := m.Up(); {
	case err == nil:
		version, dirty, _ := m.Version()
		logger.Info("Applied pending migrations",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty))
		return nil
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("Application schema already up to date")
		return nil
	default:
		return fmt.Errorf("migration failed: %w", err)
	}
}
