package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/pg-discover/pkg/apperrors"
)

// ApiResponse is the envelope for successful API responses.
type ApiResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
// The body is encoded before the status line is sent, so a value that
// cannot be encoded yields a 500 error response instead of a truncated body.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		_ = ErrorResponse(w, http.StatusInternalServerError, "encoding_failed", "Failed to encode response")
		return fmt.Errorf("encode response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, err = w.Write(append(body, '\n'))
	return err
}

// errorStatus maps a service error to an HTTP status and error code.
// Connection failures are the caller's fault (bad host, credentials or
// database) and map to 400 alongside rejected identifiers.
func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, apperrors.ErrConnectionTimeout):
		return http.StatusBadRequest, "connection_timeout", "Timed out connecting to the database"
	case errors.Is(err, apperrors.ErrConnectionRefused):
		return http.StatusBadRequest, "connection_refused", "Could not connect to the database"
	case errors.Is(err, apperrors.ErrInvalidIdentifier):
		return http.StatusBadRequest, "invalid_identifier", "Invalid schema or table name"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found", "Schema or table not found"
	default:
		return http.StatusInternalServerError, "query_failed", "Failed to read database metadata"
	}
}

// writeServiceError writes the error response for err. Driver messages are
// not echoed to the client.
func writeServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status, code, message := errorStatus(err)
	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
