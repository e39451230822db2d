package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
	"github.com/sayandkrishna/querypilot/pkg/auth"
	"github.com/sayandkrishna/querypilot/pkg/models"
	"github.com/sayandkrishna/querypilot/pkg/pipeline"
	"github.com/sayandkrishna/querypilot/pkg/repositories"
)

// SaveDBConfigRequest represents the request body for registering a target
// database.
type SaveDBConfigRequest struct {
	DBName   string `json:"db_name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// DBConfigResponse is a registered database without its password.
type DBConfigResponse struct {
	DBName   string `json:"db_name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
}

// TargetInvalidator drops cached pools and schema snapshots for a target.
type TargetInvalidator interface {
	Invalidate(userID, dbName string)
}

// DBConfigHandler manages per-user target database registrations.
type DBConfigHandler struct {
	configs     repositories.DBConfigRepository
	targets     pipeline.TargetClient
	invalidator TargetInvalidator
	logger      *zap.Logger
}

// NewDBConfigHandler creates a new database configuration handler.
func NewDBConfigHandler(configs repositories.DBConfigRepository, targets pipeline.TargetClient, invalidator TargetInvalidator, logger *zap.Logger) *DBConfigHandler {
	return &DBConfigHandler{configs: configs, targets: targets, invalidator: invalidator, logger: logger}
}

// RegisterRoutes registers the handler's routes on the given mux. All
// routes require authentication.
func (h *DBConfigHandler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.HandleFunc("POST /save-db-config", mw.RequireAuth(h.Save))
	mux.HandleFunc("GET /list-dbs", mw.RequireAuth(h.List))
	mux.HandleFunc("DELETE /db-config/{db_name}", mw.RequireAuth(h.Delete))
	mux.HandleFunc("GET /list-tables/{db_name}", mw.RequireAuth(h.ListTables))
}

// Save handles POST /save-db-config. Registering a name that already
// exists replaces the stored credentials and drops any cached connection
// pool for them.
func (h *DBConfigHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	var req SaveDBConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if msg := validateSaveRequest(&req); msg != "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_parameters", msg); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	cfg := &models.DatabaseConfig{
		UserID:   userID,
		Name:     strings.TrimSpace(req.DBName),
		Host:     req.Host,
		Port:     req.Port,
		Database: req.Database,
		User:     req.User,
		Password: req.Password,
	}
	if err := h.configs.Save(r.Context(), cfg); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	// Stale pools would keep connecting with the old credentials.
	h.invalidator.Invalidate(userID.String(), cfg.Name)

	h.logger.Info("Database configuration saved",
		zap.String("user_id", userID.String()),
		zap.String("db_name", cfg.Name))
	if err := WriteJSON(w, http.StatusCreated, map[string]string{"message": "Database configuration saved"}); err != nil {
		h.logger.Error("Failed to encode save response", zap.Error(err))
	}
}

func validateSaveRequest(req *SaveDBConfigRequest) string {
	switch {
	case strings.TrimSpace(req.DBName) == "":
		return "db_name is required"
	case req.Host == "":
		return "host is required"
	case req.Database == "":
		return "database is required"
	case req.User == "":
		return "user is required"
	case req.Port <= 0 || req.Port > 65535:
		return "port must be between 1 and 65535"
	}
	return ""
}

// List handles GET /list-dbs.
func (h *DBConfigHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	configs, err := h.configs.List(r.Context(), userID)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	out := make([]DBConfigResponse, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, DBConfigResponse{
			DBName:   cfg.Name,
			Host:     cfg.Host,
			Port:     cfg.Port,
			Database: cfg.Database,
			User:     cfg.User,
		})
	}
	if err := WriteJSON(w, http.StatusOK, map[string]any{"databases": out}); err != nil {
		h.logger.Error("Failed to encode list response", zap.Error(err))
	}
}

// Delete handles DELETE /db-config/{db_name}.
func (h *DBConfigHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	dbName := r.PathValue("db_name")
	if err := h.configs.Delete(r.Context(), userID, dbName); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "No such database configuration"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		WriteError(w, h.logger, err)
		return
	}

	h.invalidator.Invalidate(userID.String(), dbName)
	if err := WriteJSON(w, http.StatusOK, map[string]string{"message": "Database configuration deleted"}); err != nil {
		h.logger.Error("Failed to encode delete response", zap.Error(err))
	}
}

// ListTables handles GET /list-tables/{db_name}. The listing comes from
// the schema snapshot, so repeated calls are served without touching the
// target.
func (h *DBConfigHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	dbName := r.PathValue("db_name")
	cfg, err := h.configs.Get(r.Context(), userID, dbName)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "No such database configuration"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		WriteError(w, h.logger, err)
		return
	}

	snapshot, err := h.targets.Snapshot(r.Context(), cfg)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{
		"database": dbName,
		"tables":   snapshot.TableNames(),
	}); err != nil {
		h.logger.Error("Failed to encode table list", zap.Error(err))
	}
}
