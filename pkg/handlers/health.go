package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/ekaya-inc/pg-discover/pkg/cache"
	"github.com/ekaya-inc/pg-discover/pkg/config"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string       `json:"status"`
	Version     string       `json:"version"`
	Service     string       `json:"service"`
	GoVersion   string       `json:"go_version"`
	Hostname    string       `json:"hostname"`
	Environment string       `json:"environment"`
	Cache       *cache.Stats `json:"cache,omitempty"`
}

// CacheStatser reports result cache activity.
type CacheStatser interface {
	CacheStats() cache.Stats
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg    *config.Config
	stats  CacheStatser
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler with the given configuration.
// stats may be nil, in which case ping omits cache statistics.
func NewHealthHandler(cfg *config.Config, stats CacheStatser, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, stats: stats, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests.
// Returns a plain "ok" for liveness probes; it never touches a database.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
// Returns service information and result cache statistics.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "pg-discover",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}
	if h.stats != nil {
		stats := h.stats.CacheStats()
		response.Cache = &stats
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
