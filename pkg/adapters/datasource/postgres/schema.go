package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/pg-discover/pkg/adapters/datasource"
	"github.com/ekaya-inc/pg-discover/pkg/apperrors"
	"github.com/ekaya-inc/pg-discover/pkg/models"
	"github.com/ekaya-inc/pg-discover/pkg/sql"
)

// qualifiedTableName returns a properly quoted table reference.
// If schemaName is empty, returns just the quoted table name.
// Otherwise returns "schema"."table".
func qualifiedTableName(schemaName, tableName string) string {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	if schemaName == "" {
		return quotedTable
	}
	quotedSchema := pgx.Identifier{schemaName}.Sanitize()
	return quotedSchema + "." + quotedTable
}

// SchemaDiscoverer runs metadata queries over a single open connection.
// It never opens or closes the connection itself.
type SchemaDiscoverer struct {
	conn   datasource.Conn
	logger *zap.Logger
}

// NewSchemaDiscoverer creates a discoverer bound to conn.
// If logger is nil, a no-op logger is used.
func NewSchemaDiscoverer(conn datasource.Conn, logger *zap.Logger) *SchemaDiscoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaDiscoverer{conn: conn, logger: logger}
}

// ListTables returns every user table and view of the connected database,
// ordered by catalog, schema and table name.
func (d *SchemaDiscoverer) ListTables(ctx context.Context) ([]models.TableRef, error) {
	const query = `
		SELECT
			table_catalog::text AS table_catalog,
			table_schema::text AS table_schema,
			table_name::text AS table_name,
			table_type::text AS table_type
		FROM information_schema.tables
		WHERE table_schema::text <> ALL($1::text[])
		ORDER BY table_catalog, table_schema, table_name
	`

	rows, err := d.conn.Query(ctx, query, models.SystemSchemas)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}

	tables := make([]models.TableRef, 0, len(rows))
	for _, row := range rows {
		var t models.TableRef
		var tableType string
		if err := scanStrings(row,
			"table_catalog", &t.Catalog,
			"table_schema", &t.Schema,
			"table_name", &t.Name,
			"table_type", &tableType,
		); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		t.Kind = models.NormalizeTableKind(tableType)
		tables = append(tables, t)
	}

	d.logger.Debug("Listed tables", zap.Int("count", len(tables)))
	return tables, nil
}

// ListSchemaNames returns the distinct non-system schemas that contain at
// least one table or view in database, ascending.
func (d *SchemaDiscoverer) ListSchemaNames(ctx context.Context, database string) ([]string, error) {
	const query = `
		SELECT DISTINCT table_schema::text AS table_schema
		FROM information_schema.tables
		WHERE table_catalog::text = $1
		  AND table_schema::text <> ALL($2::text[])
		ORDER BY table_schema
	`

	rows, err := d.conn.Query(ctx, query, database, models.SystemSchemas)
	if err != nil {
		return nil, fmt.Errorf("query schemas: %w", err)
	}
	return collectStrings(rows, "table_schema")
}

// ListTableNames returns the table and view names of schema in database, ascending.
func (d *SchemaDiscoverer) ListTableNames(ctx context.Context, database, schema string) ([]string, error) {
	const query = `
		SELECT table_name::text AS table_name
		FROM information_schema.tables
		WHERE table_catalog::text = $1
		  AND table_schema::text = $2
		  AND table_schema::text <> ALL($3::text[])
		ORDER BY table_name
	`

	rows, err := d.conn.Query(ctx, query, database, schema, models.SystemSchemas)
	if err != nil {
		return nil, fmt.Errorf("query tables of %s: %w", schema, err)
	}
	return collectStrings(rows, "table_name")
}

// LookupTable resolves a table through information_schema using bound parameters.
// Returns apperrors.ErrNotFound if the table does not exist or lives in a system schema.
func (d *SchemaDiscoverer) LookupTable(ctx context.Context, database, schema, table string) (*models.TableRef, error) {
	if models.IsSystemSchema(schema) {
		return nil, fmt.Errorf("%w: schema %q", apperrors.ErrNotFound, schema)
	}

	const query = `
		SELECT
			table_catalog::text AS table_catalog,
			table_schema::text AS table_schema,
			table_name::text AS table_name,
			table_type::text AS table_type
		FROM information_schema.tables
		WHERE table_catalog::text = $1
		  AND table_schema::text = $2
		  AND table_name::text = $3
	`

	rows, err := d.conn.Query(ctx, query, database, schema, table)
	if err != nil {
		return nil, fmt.Errorf("lookup table %s.%s: %w", schema, table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: table %s.%s", apperrors.ErrNotFound, schema, table)
	}

	var ref models.TableRef
	var tableType string
	if err := scanStrings(rows[0],
		"table_catalog", &ref.Catalog,
		"table_schema", &ref.Schema,
		"table_name", &ref.Name,
		"table_type", &tableType,
	); err != nil {
		return nil, fmt.Errorf("scan table row: %w", err)
	}
	ref.Kind = models.NormalizeTableKind(tableType)
	return &ref, nil
}

const columnSelect = `
		SELECT
			column_name::text AS column_name,
			data_type::text AS data_type,
			character_maximum_length::int AS character_maximum_length,
			is_nullable::text AS is_nullable,
			column_default::text AS column_default
		FROM information_schema.columns
`

// ListColumns returns the columns of schema.table in ordinal order.
func (d *SchemaDiscoverer) ListColumns(ctx context.Context, schema, table string) ([]models.Column, error) {
	query := columnSelect + `
		WHERE table_schema::text = $1
		  AND table_name::text = $2
		ORDER BY ordinal_position
	`

	rows, err := d.conn.Query(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s.%s: %w", schema, table, err)
	}
	return mapColumns(rows)
}

// ListCatalogColumns is ListColumns additionally filtered by catalog.
func (d *SchemaDiscoverer) ListCatalogColumns(ctx context.Context, database, schema, table string) ([]models.Column, error) {
	query := columnSelect + `
		WHERE table_catalog::text = $1
		  AND table_schema::text = $2
		  AND table_name::text = $3
		ORDER BY ordinal_position
	`

	rows, err := d.conn.Query(ctx, query, database, schema, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s.%s: %w", schema, table, err)
	}
	return mapColumns(rows)
}

// SampleRows returns up to limit rows of schema.table in random order.
// Identifiers cannot be bound, so the table must first resolve through
// LookupTable, pass the injection screen, and is then quoted.
func (d *SchemaDiscoverer) SampleRows(ctx context.Context, database, schema, table string, limit int) ([]map[string]any, error) {
	ref, err := d.LookupTable(ctx, database, schema, table)
	if err != nil {
		return nil, err
	}
	if err := sql.CheckIdentifier("schema", ref.Schema); err != nil {
		return nil, err
	}
	if err := sql.CheckIdentifier("table", ref.Name); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s ORDER BY random() LIMIT $1", qualifiedTableName(ref.Schema, ref.Name))

	rows, err := d.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("sample %s.%s: %w", schema, table, err)
	}

	result := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]any, len(row))
		for _, f := range row {
			m[f.Name] = renderValue(f.Value)
		}
		result = append(result, m)
	}
	return result, nil
}

// ListConstraints returns the constraints of schema.table, one entry per
// constrained column, ordered by constraint name then column position.
// information_schema reports every NOT NULL column as a CHECK named
// like "2200_16390_2_not_null" with a bare "col IS NOT NULL" clause; those
// are column nullability, not declared constraints, and are skipped.
// Declared CHECKs keep their parenthesized clause and are unaffected.
func (d *SchemaDiscoverer) ListConstraints(ctx context.Context, database, schema, table string) ([]models.TableConstraint, error) {
	const query = `
		SELECT
			tc.constraint_name::text AS constraint_name,
			tc.constraint_type::text AS constraint_type,
			kcu.column_name::text AS column_name
		FROM information_schema.table_constraints tc
		LEFT JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_catalog = tc.constraint_catalog
			AND kcu.constraint_schema = tc.constraint_schema
			AND kcu.constraint_name = tc.constraint_name
			AND kcu.table_name = tc.table_name
		WHERE tc.table_catalog::text = $1
		  AND tc.table_schema::text = $2
		  AND tc.table_name::text = $3
		  AND tc.constraint_type::text IN ('PRIMARY KEY', 'UNIQUE', 'FOREIGN KEY', 'CHECK')
		  AND NOT (
			tc.constraint_type::text = 'CHECK'
			AND tc.constraint_name::text LIKE '%\_not\_null'
			AND EXISTS (
				SELECT 1 FROM information_schema.check_constraints cc
				WHERE cc.constraint_schema = tc.constraint_schema
				  AND cc.constraint_name = tc.constraint_name
				  AND cc.check_clause::text LIKE '% IS NOT NULL'
			)
		  )
		ORDER BY tc.constraint_name, kcu.ordinal_position
	`

	rows, err := d.conn.Query(ctx, query, database, schema, table)
	if err != nil {
		return nil, fmt.Errorf("query constraints for %s.%s: %w", schema, table, err)
	}

	constraints := make([]models.TableConstraint, 0, len(rows))
	for _, row := range rows {
		var c models.TableConstraint
		if err := scanStrings(row,
			"constraint_name", &c.Name,
			"constraint_type", &c.Type,
			"column_name", &c.ColumnName,
		); err != nil {
			return nil, fmt.Errorf("scan constraint row: %w", err)
		}
		constraints = append(constraints, c)
	}
	return constraints, nil
}

// SchemaStats returns planner row estimates and total on-disk size for every
// ordinary or partitioned table in schema, ordered by table name.
func (d *SchemaDiscoverer) SchemaStats(ctx context.Context, schema string) ([]models.TableStats, error) {
	if models.IsSystemSchema(schema) {
		return nil, fmt.Errorf("%w: schema %q", apperrors.ErrNotFound, schema)
	}

	const query = `
		SELECT
			c.relname::text AS table_name,
			GREATEST(c.reltuples, 0)::bigint AS row_estimate,
			pg_total_relation_size(c.oid)::bigint AS total_bytes
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
		  AND c.relkind IN ('r', 'p')
		ORDER BY c.relname
	`

	rows, err := d.conn.Query(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("query stats for %s: %w", schema, err)
	}

	stats := make([]models.TableStats, 0, len(rows))
	for _, row := range rows {
		var s models.TableStats
		if s.TableName, err = row.String("table_name"); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		if s.RowEstimate, err = row.Int64("row_estimate"); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		if s.TotalBytes, err = row.Int64("total_bytes"); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, nil
}

func mapColumns(rows []datasource.Row) ([]models.Column, error) {
	columns := make([]models.Column, 0, len(rows))
	for _, row := range rows {
		var col models.Column
		var nullable string
		if err := scanStrings(row,
			"column_name", &col.Name,
			"data_type", &col.DataType,
			"is_nullable", &nullable,
			"column_default", &col.Default,
		); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		col.IsNullable = nullable == "YES"

		maxLen, err := row.NullableInt("character_maximum_length")
		if err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		if maxLen != nil && models.IsCharacterType(col.DataType) {
			col.CharMaxLen = maxLen
		}

		columns = append(columns, col)
	}
	return columns, nil
}

func collectStrings(rows []datasource.Row, name string) ([]string, error) {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		s, err := row.String(name)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// scanStrings reads name/destination pairs from row. NULL scans as "".
func scanStrings(row datasource.Row, pairs ...any) error {
	if len(pairs)%2 != 0 {
		return errors.New("scanStrings: odd number of arguments")
	}
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return fmt.Errorf("scanStrings: argument %d is not a column name", i)
		}
		dest, ok := pairs[i+1].(*string)
		if !ok {
			return fmt.Errorf("scanStrings: destination for %s is not *string", name)
		}
		v, err := row.String(name)
		if err != nil {
			return err
		}
		*dest = v
	}
	return nil
}
