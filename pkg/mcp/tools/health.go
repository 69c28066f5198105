// Package tools provides the MCP tools of pg-discover.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/pg-discover/pkg/cache"
)

type healthResult struct {
	Status  string       `json:"status"`
	Version string       `json:"version"`
	Cache   *cache.Stats `json:"cache,omitempty"`
}

// CacheStatser reports result cache activity.
type CacheStatser interface {
	CacheStats() cache.Stats
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, version and, when stats is non-nil,
// result cache statistics. It never connects to a database.
func RegisterHealthTool(s *server.MCPServer, version string, stats CacheStatser) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := healthResult{Status: "ok", Version: version}
		if stats != nil {
			st := stats.CacheStats()
			res.Cache = &st
		}
		result, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
