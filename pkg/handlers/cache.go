package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/auth"
	"github.com/sayandkrishna/querypilot/pkg/models"
	"github.com/sayandkrishna/querypilot/pkg/pipeline"
)

// CacheAdmin is the cache and debug surface of the pipeline.
type CacheAdmin interface {
	CacheStats(ctx context.Context, userID uuid.UUID) (*models.CacheStats, error)
	ClearCache(ctx context.Context, userID uuid.UUID) (int, error)
	DebugIntent(ctx context.Context, userID uuid.UUID, dbName, question string) (*pipeline.IntentReport, error)
	DebugSimilarity(ctx context.Context, queryA, queryB string) (*pipeline.SimilarityReport, error)
}

// DebugRequest represents the request body for the intent debug endpoint.
type DebugRequest struct {
	Question string `json:"question"`
	DBName   string `json:"db_name,omitempty"`
}

// SimilarityRequest represents the request body for the similarity debug
// endpoint.
type SimilarityRequest struct {
	QueryA string `json:"query_a"`
	QueryB string `json:"query_b"`
}

// CacheHandler exposes per-user cache statistics, cache clearing, and the
// intent and similarity debug endpoints.
type CacheHandler struct {
	admin  CacheAdmin
	logger *zap.Logger
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(admin CacheAdmin, logger *zap.Logger) *CacheHandler {
	return &CacheHandler{admin: admin, logger: logger}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *CacheHandler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.HandleFunc("GET /cache-stats", mw.RequireAuth(h.Stats))
	mux.HandleFunc("DELETE /clear-cache", mw.RequireAuth(h.Clear))
	mux.HandleFunc("POST /debug-intent", mw.RequireAuth(h.DebugIntent))
	mux.HandleFunc("POST /debug-similarity", mw.RequireAuth(h.DebugSimilarity))
}

// Stats handles GET /cache-stats.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	stats, err := h.admin.CacheStats(r.Context(), userID)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, stats); err != nil {
		h.logger.Error("Failed to encode cache stats", zap.Error(err))
	}
}

// Clear handles DELETE /clear-cache.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	cleared, err := h.admin.ClearCache(r.Context(), userID)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string]int{"entries_cleared": cleared}); err != nil {
		h.logger.Error("Failed to encode clear response", zap.Error(err))
	}
}

// DebugIntent handles POST /debug-intent.
func (h *CacheHandler) DebugIntent(w http.ResponseWriter, r *http.Request) {
	userID, req, ok := h.decodeDebugRequest(w, r)
	if !ok {
		return
	}

	report, err := h.admin.DebugIntent(r.Context(), userID, req.DBName, req.Question)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, report); err != nil {
		h.logger.Error("Failed to encode intent report", zap.Error(err))
	}
}

// DebugSimilarity handles POST /debug-similarity. It compares two free
// questions, not a question against the cache.
func (h *CacheHandler) DebugSimilarity(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireUserIDFromContext(r.Context()); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	var req SimilarityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.QueryA == "" || req.QueryB == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_parameters", "query_a and query_b are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	report, err := h.admin.DebugSimilarity(r.Context(), req.QueryA, req.QueryB)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, report); err != nil {
		h.logger.Error("Failed to encode similarity report", zap.Error(err))
	}
}

func (h *CacheHandler) decodeDebugRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, *DebugRequest, bool) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return uuid.Nil, nil, false
	}

	var req DebugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, nil, false
	}
	if req.Question == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_parameters", "question is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, nil, false
	}
	return userID, &req, true
}
