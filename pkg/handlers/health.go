package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/config"
	"github.com/sayandkrishna/querypilot/pkg/pipeline"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthResponse reports per-dependency health. The service stays up when
// the cache is down, so a cache outage reports degraded rather than
// failing the check.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Cache     string `json:"cache"`
	Embedding string `json:"embedding"`
}

// Pinger is the application database's liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker is the pipeline's dependency probe.
type HealthChecker interface {
	CheckHealth(ctx context.Context) *pipeline.Health
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg     *config.Config
	appDB   Pinger
	checker HealthChecker
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(cfg *config.Config, appDB Pinger, checker HealthChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, appDB: appDB, checker: checker, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests. The application database is the
// only hard dependency; anything else degrades.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK

	if err := h.appDB.Ping(r.Context()); err != nil {
		resp.Status = "unhealthy"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}

	ph := h.checker.CheckHealth(r.Context())
	resp.Cache = ph.Cache
	resp.Embedding = ph.Embedding
	if ph.Degraded && resp.Status == "ok" {
		resp.Status = "degraded"
	}

	if err := WriteJSON(w, status, resp); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "querypilot",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
