package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ParseDatabase extracts the database name from the request path.
// Returns the name and true on success, or "" and false on error
// (after writing an error response).
// Expects path parameter: database
func ParseDatabase(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	return parseName(w, r, "database", "invalid_database", "Database name is required", logger)
}

// ParseSchema extracts the schema name from the request path.
// Expects path parameter: schema
func ParseSchema(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	return parseName(w, r, "schema", "invalid_schema", "Schema name is required", logger)
}

// ParseTable extracts the table name from the request path.
// Expects path parameter: table
func ParseTable(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	return parseName(w, r, "table", "invalid_table", "Table name is required", logger)
}

// ParseLimit reads the optional ?limit= query parameter.
// Returns 0 when absent, leaving the default to the service.
func ParseLimit(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return limit, true
}

// parseName is the internal helper that does the actual parsing work.
func parseName(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (string, bool) {
	name := r.PathValue(pathParam)
	if strings.TrimSpace(name) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return name, true
}
