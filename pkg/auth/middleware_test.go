package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRequireAuth(t *testing.T) {
	svc, err := NewService("test-secret", 30*time.Minute)
	require.NoError(t, err)
	mw := NewMiddleware(svc, zap.NewNop())

	userID := uuid.New()
	token, err := svc.IssueToken(userID, "alice")
	require.NoError(t, err)

	var gotUserID uuid.UUID
	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{
			name:       "valid token",
			authHeader: "Bearer " + token,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			authHeader: "Basic " + token,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed token",
			authHeader: "Bearer garbage",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUserID = uuid.Nil
			req := httptest.NewRequest(http.MethodGet, "/ask", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			handler(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, userID, gotUserID)
			} else {
				assert.Equal(t, uuid.Nil, gotUserID)
			}
		})
	}
}

func TestRequireUserIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ask", nil)
	_, err := RequireUserIDFromContext(req.Context())
	require.Error(t, err)
}
