package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
)

type contextKey string

// ClaimsKey is the context key under which the middleware stores validated
// claims.
const ClaimsKey contextKey = "auth_claims"

// GetClaims extracts validated claims from the context.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetUserIDFromContext extracts the authenticated user UUID from the
// context. Returns uuid.Nil and false if the request is not authenticated.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, false
	}

	return userID, true
}

// RequireUserIDFromContext extracts the authenticated user UUID and returns
// an error if it is missing or invalid.
func RequireUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, apperrors.New(apperrors.KindAuthorization, "request is not authenticated")
	}
	return userID, nil
}
