package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/pg-discover/pkg/adapters/datasource"
	"github.com/ekaya-inc/pg-discover/pkg/config"
	"github.com/ekaya-inc/pg-discover/pkg/services"
)

// maxRequestBodyBytes bounds the connection-parameter body.
const maxRequestBodyBytes = 64 << 10

// validSSLModes are the libpq sslmode values.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// DiscoveryHandler handles metadata discovery requests. Connection
// parameters, including the password, travel in the JSON request body.
type DiscoveryHandler struct {
	service  services.DiscoveryService
	defaults config.DiscoveryConfig
	logger   *zap.Logger
}

// NewDiscoveryHandler creates a new discovery handler.
func NewDiscoveryHandler(service services.DiscoveryService, defaults config.DiscoveryConfig, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		service:  service,
		defaults: defaults,
		logger:   logger,
	}
}

// RegisterRoutes registers the discovery handler's routes on the given mux.
func (h *DiscoveryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/discover", h.DiscoverAll)

	mux.HandleFunc("POST /api/databases/{database}/schemas", h.ListSchemas)
	mux.HandleFunc("POST /api/databases/{database}/schemas/{schema}/tables", h.ListTables)
	mux.HandleFunc("POST /api/databases/{database}/schemas/{schema}/stats", h.GetSchemaStats)

	mux.HandleFunc("POST /api/databases/{database}/schemas/{schema}/tables/{table}", h.GetTable)
	mux.HandleFunc("POST /api/databases/{database}/schemas/{schema}/tables/{table}/sample", h.SampleTable)
	mux.HandleFunc("POST /api/databases/{database}/schemas/{schema}/tables/{table}/constraints", h.GetTableConstraints)
}

// DiscoverAll handles POST /api/discover
// Returns every catalog, schema, table and column of the target.
func (h *DiscoveryHandler) DiscoverAll(w http.ResponseWriter, r *http.Request) {
	params, ok := h.decodeParams(w, r)
	if !ok {
		return
	}

	catalogs, err := h.service.DiscoverAll(r.Context(), params)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.writeData(w, catalogs)
}

// ListSchemas handles POST /api/databases/{database}/schemas
func (h *DiscoveryHandler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	database, ok := ParseDatabase(w, r, h.logger)
	if !ok {
		return
	}
	params, ok := h.decodeParams(w, r)
	if !ok {
		return
	}

	result, err := h.service.ListSchemas(r.Context(), params, database)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.writeData(w, result)
}

// ListTables handles POST /api/databases/{database}/schemas/{schema}/tables
func (h *DiscoveryHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	database, schema, ok := h.parseSchemaPath(w, r)
	if !ok {
		return
	}
	params, ok := h.decodeParams(w, r)
	if !ok {
		return
	}

	result, err := h.service.ListTables(r.Context(), params, database, schema)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.writeData(w, result)
}

// GetSchemaStats handles POST /api/databases/{database}/schemas/{schema}/stats
// Returns planner row estimates and on-disk size per table.
func (h *DiscoveryHandler) GetSchemaStats(w http.ResponseWriter, r *http.Request) {
	database, schema, ok := h.parseSchemaPath(w, r)
	if !ok {
		return
	}
	params, ok := h.decodeParams(w, r)
	if !ok {
		return
	}

	result, err := h.service.GetSchemaStats(r.Context(), params, database, schema)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.writeData(w, result)
}

// GetTable handles POST /api/databases/{database}/schemas/{schema}/tables/{table}
func (h *DiscoveryHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	database, schema, table, ok := h.parseTablePath(w, r)
	if !ok {
		return
	}
	params, ok := h.decodeParams(w, r)
	if !ok {
		return
	}

	result, err := h.service.GetTable(r.Context(), params, database, schema, table)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.writeData(w, result)
}

// SampleTable handles POST /api/databases/{database}/schemas/{schema}/tables/{table}/sample?limit=N
func (h *DiscoveryHandler) SampleTable(w http.ResponseWriter, r *http.Request) {
	database, schema, table, ok := h.parseTablePath(w, r)
	if !ok {
		return
	}
	limit, ok := ParseLimit(w, r, h.logger)
	if !ok {
		return
	}
	params, ok := h.decodeParams(w, r)
	if !ok {
		return
	}

	result, err := h.service.SampleTable(r.Context(), params, database, schema, table, limit)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.writeData(w, result)
}

// GetTableConstraints handles POST /api/databases/{database}/schemas/{schema}/tables/{table}/constraints
func (h *DiscoveryHandler) GetTableConstraints(w http.ResponseWriter, r *http.Request) {
	database, schema, table, ok := h.parseTablePath(w, r)
	if !ok {
		return
	}
	params, ok := h.decodeParams(w, r)
	if !ok {
		return
	}

	result, err := h.service.GetTableConstraints(r.Context(), params, database, schema, table)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.writeData(w, result)
}

func (h *DiscoveryHandler) parseSchemaPath(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	database, ok := ParseDatabase(w, r, h.logger)
	if !ok {
		return "", "", false
	}
	schema, ok := ParseSchema(w, r, h.logger)
	if !ok {
		return "", "", false
	}
	return database, schema, true
}

func (h *DiscoveryHandler) parseTablePath(w http.ResponseWriter, r *http.Request) (string, string, string, bool) {
	database, schema, ok := h.parseSchemaPath(w, r)
	if !ok {
		return "", "", "", false
	}
	table, ok := ParseTable(w, r, h.logger)
	if !ok {
		return "", "", "", false
	}
	return database, schema, table, true
}

// decodeParams reads and validates connection parameters from the body,
// filling unset fields from the configured defaults.
func (h *DiscoveryHandler) decodeParams(w http.ResponseWriter, r *http.Request) (datasource.ConnectionParams, bool) {
	var params datasource.ConnectionParams

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		message := "Request body must be a JSON object of connection parameters"
		if errors.Is(err, io.EOF) {
			message = "Request body is required"
		}
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", message); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return params, false
	}

	if params.ConnectTimeout == 0 {
		params.ConnectTimeout = h.defaults.ConnectTimeoutSeconds
	}
	if params.SSLMode == "" {
		params.SSLMode = h.defaults.SSLMode
	}

	if err := validateConnectionParams(params); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_connection_params", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return params, false
	}

	return params.WithDefaults(), true
}

// validateConnectionParams checks caller-supplied connection parameters.
// A zero port means the default.
func validateConnectionParams(p datasource.ConnectionParams) error {
	if strings.TrimSpace(p.Host) == "" {
		return errors.New("host is required")
	}
	if strings.TrimSpace(p.User) == "" {
		return errors.New("user is required")
	}
	if p.Port < 0 || p.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", p.Port)
	}
	if p.ConnectTimeout < 0 {
		return errors.New("connect_timeout must not be negative")
	}
	if p.SSLMode != "" && !validSSLModes[p.SSLMode] {
		return fmt.Errorf("unsupported ssl_mode %q", p.SSLMode)
	}
	return nil
}

func (h *DiscoveryHandler) writeData(w http.ResponseWriter, data any) {
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
