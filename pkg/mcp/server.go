// Package mcp exposes discovery operations as MCP tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/pg-discover/pkg/mcp/tools"
	"github.com/ekaya-inc/pg-discover/pkg/services"
)

const instructions = "Read-only PostgreSQL metadata discovery. " +
	"Start with list_schemas, then list_tables and get_table; use sample_table to see example rows."

// Server wraps the mcp-go MCPServer with pg-discover tools.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates a new MCP server instance.
func NewServer(name, version string, logger *zap.Logger) *Server {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	return &Server{
		mcp:    mcpServer,
		logger: logger,
	}
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// RegisterTools registers the health tool and every discovery tool.
func (s *Server) RegisterTools(version string, service services.DiscoveryService, deps *tools.DiscoveryToolDeps) {
	tools.RegisterHealthTool(s.mcp, version, service)
	tools.RegisterDiscoveryTools(s.mcp, deps)
	s.logger.Info("Registered MCP tools", zap.String("target", deps.Target.String()))
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}
