package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
)

func TestHashPassword(t *testing.T) {
	hash := HashPassword("secret123")

	// SHA-256 hex digest is 64 characters.
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashPassword("secret123"))
	assert.NotEqual(t, hash, HashPassword("secret124"))
}

func TestVerifyPassword(t *testing.T) {
	hash := HashPassword("correct horse")

	assert.True(t, VerifyPassword("correct horse", hash))
	assert.False(t, VerifyPassword("wrong horse", hash))
	assert.False(t, VerifyPassword("", hash))
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService("", time.Minute)
	require.Error(t, err)
}

func TestIssueAndValidateToken(t *testing.T) {
	svc, err := NewService("test-secret", 30*time.Minute)
	require.NoError(t, err)

	userID := uuid.New()
	token, err := svc.IssueToken(userID, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "alice", claims.Username)
}

func TestValidateToken_Expired(t *testing.T) {
	svc, err := NewService("test-secret", -time.Minute)
	require.NoError(t, err)

	token, err := svc.IssueToken(uuid.New(), "alice")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuer, err := NewService("secret-a", 30*time.Minute)
	require.NoError(t, err)
	verifier, err := NewService("secret-b", 30*time.Minute)
	require.NoError(t, err)

	token, err := issuer.IssueToken(uuid.New(), "alice")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}

func TestValidateToken_Garbage(t *testing.T) {
	svc, err := NewService("test-secret", 30*time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken("not-a-token")
	require.Error(t, err)
}
