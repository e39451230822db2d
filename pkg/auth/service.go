// Package auth provides password hashing, JWT issuance and validation, and
// the HTTP middleware that injects the authenticated user into the request
// context.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
)

// Claims are the JWT claims issued to authenticated users. Subject carries
// the user UUID.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service issues and validates HS256 tokens.
type Service struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewService creates an auth service. The secret must be non-empty.
func NewService(secret string, tokenTTL time.Duration) (*Service, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	return &Service{secret: []byte(secret), tokenTTL: tokenTTL}, nil
}

// HashPassword returns the hex-encoded SHA-256 digest of the password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword compares a plaintext password against a stored hash in
// constant time.
func VerifyPassword(password, hash string) bool {
	computed := HashPassword(password)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// IssueToken creates a signed token for the given user.
func (s *Service) IssueToken(userID uuid.UUID, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and verifies a token string, returning its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindAuthorization, "invalid token", err)
	}
	if !token.Valid {
		return nil, apperrors.New(apperrors.KindAuthorization, "invalid token")
	}

	return claims, nil
}
