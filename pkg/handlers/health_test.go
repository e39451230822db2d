package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/config"
	"github.com/sayandkrishna/querypilot/pkg/pipeline"
)

type mockPinger struct {
	Err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.Err }

type mockChecker struct {
	Result *pipeline.Health
}

func (m *mockChecker) CheckHealth(ctx context.Context) *pipeline.Health {
	if m.Result != nil {
		return m.Result
	}
	return &pipeline.Health{Cache: "ok", Embedding: "ok"}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		dbErr      error
		pipeHealth *pipeline.Health
		wantStatus int
		wantState  string
	}{
		{"all healthy", nil, nil, http.StatusOK, "ok"},
		{
			"cache down is degraded",
			nil,
			&pipeline.Health{Cache: "connection refused", Embedding: "ok", Degraded: true},
			http.StatusOK,
			"degraded",
		},
		{"database down is unhealthy", assert.AnError, nil, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(
				&config.Config{Version: "test", Env: "local"},
				&mockPinger{Err: tt.dbErr},
				&mockChecker{Result: tt.pipeHealth},
				zap.NewNop(),
			)

			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tt.wantStatus, rec.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantState, resp.Status)
		})
	}
}

func TestPing(t *testing.T) {
	h := NewHealthHandler(
		&config.Config{Version: "1.2.3", Env: "local"},
		&mockPinger{},
		&mockChecker{},
		zap.NewNop(),
	)

	rec := httptest.NewRecorder()
	h.Ping(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp PingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "querypilot", resp.Service)
}
