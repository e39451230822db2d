package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that owns database configs and a private cache
// namespace. The pipeline receives the ID from the auth layer and trusts it.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
