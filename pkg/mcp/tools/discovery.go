package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/pg-discover/pkg/adapters/datasource"
	"github.com/ekaya-inc/pg-discover/pkg/apperrors"
	"github.com/ekaya-inc/pg-discover/pkg/services"
)

// DiscoveryToolDeps contains dependencies for the discovery tools.
// Every tool runs against Target; a tool's optional database argument
// switches the database on the same server.
type DiscoveryToolDeps struct {
	Service services.DiscoveryService
	Target  datasource.ConnectionParams
	Logger  *zap.Logger
}

// RegisterDiscoveryTools registers the metadata discovery MCP tools.
func RegisterDiscoveryTools(s *server.MCPServer, deps *DiscoveryToolDeps) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	registerDiscoverDatabaseTool(s, deps)
	registerListSchemasTool(s, deps)
	registerListTablesTool(s, deps)
	registerGetTableTool(s, deps)
	registerSampleTableTool(s, deps)
	registerGetTableConstraintsTool(s, deps)
	registerGetSchemaStatsTool(s, deps)
}

// readOnlyTool builds a tool with the annotations shared by every discovery tool.
func readOnlyTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)
	opts = append(opts,
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
	return mcp.NewTool(name, opts...)
}

func databaseArg() mcp.ToolOption {
	return mcp.WithString(
		"database",
		mcp.Description("Optional - Database to inspect. Defaults to the configured database."),
	)
}

func schemaArg() mcp.ToolOption {
	return mcp.WithString(
		"schema",
		mcp.Required(),
		mcp.Description("Schema name (e.g., 'public')"),
	)
}

func tableArg() mcp.ToolOption {
	return mcp.WithString(
		"table",
		mcp.Required(),
		mcp.Description("Table or view name, exactly as stored (case-sensitive)"),
	)
}

// database resolves the optional database argument against the target.
func (d *DiscoveryToolDeps) database(req mcp.CallToolRequest) string {
	if db := getOptionalString(req, "database"); db != "" {
		return db
	}
	return d.Target.WithDefaults().Database
}

// respond marshals data as the tool result, or converts err into a tool error.
func (d *DiscoveryToolDeps) respond(tool string, data any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		if apperrors.IsConnectionError(err) {
			d.Logger.Warn("Tool failed to connect", zap.String("tool", tool), zap.String("target", d.Target.String()))
		} else {
			d.Logger.Debug("Tool returned error", zap.String("tool", tool), zap.String("error_type", fmt.Sprintf("%T", err)))
		}
		return NewServiceErrorResult(err), nil
	}

	jsonResult, err := json.Marshal(data)
	if err != nil {
		d.Logger.Error("Failed to encode tool result", zap.String("tool", tool), zap.Error(err))
		return NewErrorResult("encoding_failed", "failed to encode result"), nil
	}
	return mcp.NewToolResultText(string(jsonResult)), nil
}

func registerDiscoverDatabaseTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	tool := readOnlyTool(
		"discover_database",
		"Returns every schema, table, view and column of the configured database as a nested tree. "+
			"System schemas (pg_catalog, information_schema) are excluded.",
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		catalogs, err := deps.Service.DiscoverAll(ctx, deps.Target)
		return deps.respond("discover_database", catalogs, err)
	})
}

func registerListSchemasTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	tool := readOnlyTool(
		"list_schemas",
		"Lists the non-system schemas of a database that contain tables or views.",
		databaseArg(),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := deps.Service.ListSchemas(ctx, deps.Target, deps.database(req))
		return deps.respond("list_schemas", result, err)
	})
}

func registerListTablesTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	tool := readOnlyTool(
		"list_tables",
		"Lists table and view names in a schema. Example: list_tables(schema='public')",
		databaseArg(),
		schemaArg(),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schema, errResult := requireName(req, "schema")
		if errResult != nil {
			return errResult, nil
		}
		result, err := deps.Service.ListTables(ctx, deps.Target, deps.database(req), schema)
		return deps.respond("list_tables", result, err)
	})
}

func registerGetTableTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	tool := readOnlyTool(
		"get_table",
		"Returns a table's kind and its columns in ordinal order with data type, "+
			"maximum character length, nullability and default.",
		databaseArg(),
		schemaArg(),
		tableArg(),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schema, errResult := requireName(req, "schema")
		if errResult != nil {
			return errResult, nil
		}
		table, errResult := requireName(req, "table")
		if errResult != nil {
			return errResult, nil
		}
		result, err := deps.Service.GetTable(ctx, deps.Target, deps.database(req), schema, table)
		return deps.respond("get_table", result, err)
	})
}

func registerSampleTableTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	tool := readOnlyTool(
		"sample_table",
		"Returns up to 'limit' randomly chosen rows of a table. Non-scalar values are rendered as strings.",
		databaseArg(),
		schemaArg(),
		tableArg(),
		mcp.WithNumber(
			"limit",
			mcp.Description(fmt.Sprintf("Optional - Maximum rows to return (default %d, max %d)",
				services.DefaultSampleLimit, services.MaxSampleLimit)),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schema, errResult := requireName(req, "schema")
		if errResult != nil {
			return errResult, nil
		}
		table, errResult := requireName(req, "table")
		if errResult != nil {
			return errResult, nil
		}
		limit, ok := getOptionalInt(req, "limit")
		if ok && limit < 1 {
			return NewErrorResult("invalid_parameters", "parameter 'limit' must be a positive integer"), nil
		}
		result, err := deps.Service.SampleTable(ctx, deps.Target, deps.database(req), schema, table, limit)
		return deps.respond("sample_table", result, err)
	})
}

func registerGetTableConstraintsTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	tool := readOnlyTool(
		"get_table_constraints",
		"Returns the PRIMARY KEY, UNIQUE, FOREIGN KEY and CHECK constraints of a table, one entry per constrained column.",
		databaseArg(),
		schemaArg(),
		tableArg(),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schema, errResult := requireName(req, "schema")
		if errResult != nil {
			return errResult, nil
		}
		table, errResult := requireName(req, "table")
		if errResult != nil {
			return errResult, nil
		}
		result, err := deps.Service.GetTableConstraints(ctx, deps.Target, deps.database(req), schema, table)
		return deps.respond("get_table_constraints", result, err)
	})
}

func registerGetSchemaStatsTool(s *server.MCPServer, deps *DiscoveryToolDeps) {
	tool := readOnlyTool(
		"get_schema_stats",
		"Returns the planner's estimated row count and total on-disk size in bytes for every table of a schema.",
		databaseArg(),
		schemaArg(),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schema, errResult := requireName(req, "schema")
		if errResult != nil {
			return errResult, nil
		}
		result, err := deps.Service.GetSchemaStats(ctx, deps.Target, deps.database(req), schema)
		return deps.respond("get_schema_stats", result, err)
	})
}
