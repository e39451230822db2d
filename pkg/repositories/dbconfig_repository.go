package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
	"github.com/sayandkrishna/querypilot/pkg/crypto"
	"github.com/sayandkrishna/querypilot/pkg/database"
	"github.com/sayandkrishna/querypilot/pkg/models"
)

// DBConfigRepository defines the interface for registered target-database
// configurations. Stored passwords are encrypted at rest and transparently
// decrypted on read.
type DBConfigRepository interface {
	// Save inserts a configuration, or replaces the existing one with the
	// same (user, name) pair.
	Save(ctx context.Context, cfg *models.DatabaseConfig) error
	Get(ctx context.Context, userID uuid.UUID, name string) (*models.DatabaseConfig, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.DatabaseConfig, error)
	Delete(ctx context.Context, userID uuid.UUID, name string) error
}

type dbConfigRepository struct {
	db        *database.DB
	encryptor *crypto.CredentialEncryptor
	builder   sq.StatementBuilderType
}

// NewDBConfigRepository creates a new target-database configuration repository.
func NewDBConfigRepository(db *database.DB, encryptor *crypto.CredentialEncryptor) DBConfigRepository {
	return &dbConfigRepository{
		db:        db,
		encryptor: encryptor,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *dbConfigRepository) Save(ctx context.Context, cfg *models.DatabaseConfig) error {
	encrypted, err := r.encryptor.Encrypt(cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to encrypt password: %w", err)
	}

	query := `
		INSERT INTO db_credentials (user_id, db_name, db_host, db_database, db_user, db_password, db_port)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, db_name) DO UPDATE
		SET db_host = EXCLUDED.db_host,
		    db_database = EXCLUDED.db_database,
		    db_user = EXCLUDED.db_user,
		    db_password = EXCLUDED.db_password,
		    db_port = EXCLUDED.db_port
		RETURNING id, created_at`

	err = r.db.QueryRow(ctx, query,
		cfg.UserID,
		cfg.Name,
		cfg.Host,
		cfg.Database,
		cfg.User,
		encrypted,
		cfg.Port,
	).Scan(&cfg.ID, &cfg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save database config: %w", err)
	}

	return nil
}

func (r *dbConfigRepository) Get(ctx context.Context, userID uuid.UUID, name string) (*models.DatabaseConfig, error) {
	sql, args, err := r.selectBuilder().
		Where(sq.Eq{"user_id": userID, "db_name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	cfg, err := r.scanOne(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get database config: %w", err)
	}

	return cfg, nil
}

func (r *dbConfigRepository) List(ctx context.Context, userID uuid.UUID) ([]*models.DatabaseConfig, error) {
	sql, args, err := r.selectBuilder().
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list database configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.DatabaseConfig
	for rows.Next() {
		cfg, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan database config: %w", err)
		}
		configs = append(configs, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating database configs: %w", err)
	}

	return configs, nil
}

func (r *dbConfigRepository) Delete(ctx context.Context, userID uuid.UUID, name string) error {
	sql, args, err := r.builder.
		Delete("db_credentials").
		Where(sq.Eq{"user_id": userID, "db_name": name}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to delete database config: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *dbConfigRepository) selectBuilder() sq.SelectBuilder {
	return r.builder.
		Select("id", "user_id", "db_name", "db_host", "db_database", "db_user", "db_password", "db_port", "created_at").
		From("db_credentials")
}

func (r *dbConfigRepository) scanOne(row pgx.Row) (*models.DatabaseConfig, error) {
	var cfg models.DatabaseConfig
	var encrypted string
	err := row.Scan(
		&cfg.ID,
		&cfg.UserID,
		&cfg.Name,
		&cfg.Host,
		&cfg.Database,
		&cfg.User,
		&encrypted,
		&cfg.Port,
		&cfg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	cfg.Password, err = r.encryptor.Decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt password: %w", err)
	}

	return &cfg, nil
}

// Ensure dbConfigRepository implements DBConfigRepository at compile time.
var _ DBConfigRepository = (*dbConfigRepository)(nil)
