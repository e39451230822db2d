package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DatabaseConfig is a target database registered by a user, unique by
// (user, name). The password is encrypted at rest and decrypted by the
// repository on read.
type DatabaseConfig struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Database  string    `json:"database"`
	User      string    `json:"user"`
	Password  string    `json:"-"`
	Port      int       `json:"port"`
	CreatedAt time.Time `json:"created_at"`
}

// ConnectionString returns a pgx-compatible connection string for the
// target database. Never log the result directly; use logging.SanitizeConnString.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=prefer",
		c.Host, c.Port, c.User, c.Password, c.Database,
	)
}

// PoolKey identifies the connection pool for this config. Pools are scoped
// per (user, config name) so one user's slow target never starves another's.
func (c *DatabaseConfig) PoolKey() string {
	return fmt.Sprintf("%s:%s", c.UserID, c.Name)
}
