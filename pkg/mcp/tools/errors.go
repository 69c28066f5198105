package tools

import (
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/pg-discover/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// Errors are returned as tool results with IsError set, so the client
// sees the code and message instead of a bare protocol failure.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorResult creates a tool result containing a structured error.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// NewServiceErrorResult converts a discovery service error into a tool error.
// Connection errors keep a generic message; the driver text may echo the target.
func NewServiceErrorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperrors.ErrConnectionTimeout):
		return NewErrorResult("connection_timeout", "timed out connecting to the configured database")
	case errors.Is(err, apperrors.ErrConnectionRefused):
		return NewErrorResult("connection_refused", "could not connect to the configured database")
	case errors.Is(err, apperrors.ErrInvalidIdentifier):
		return NewErrorResult("invalid_identifier", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		return NewErrorResult("not_found", err.Error())
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "42501" {
			return NewErrorResult("permission_denied", pgErr.Message)
		}
		return NewErrorResult("query_failed", pgErr.Message)
	}
	return NewErrorResult("query_failed", "failed to read database metadata")
}
