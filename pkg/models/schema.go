package models

import "strings"

// TableKind is the normalized relation kind exposed to callers.
type TableKind string

const (
	TableKindTable   TableKind = "table"
	TableKindView    TableKind = "view"
	TableKindUnknown TableKind = "unknown"
)

// SystemSchemas are the schemas PostgreSQL uses for its own catalog metadata.
// They are excluded from every listing.
var SystemSchemas = []string{"pg_catalog", "information_schema"}

// IsSystemSchema reports whether name is one of SystemSchemas.
func IsSystemSchema(name string) bool {
	for _, s := range SystemSchemas {
		if s == name {
			return true
		}
	}
	return false
}

// NormalizeTableKind maps information_schema.tables.table_type to a TableKind.
// Already-normalized values map to themselves.
func NormalizeTableKind(tableType string) TableKind {
	switch tableType {
	case "BASE TABLE", string(TableKindTable):
		return TableKindTable
	case "VIEW", string(TableKindView):
		return TableKindView
	default:
		return TableKindUnknown
	}
}

// characterTypes are the data_type values of the bounded character family.
var characterTypes = map[string]bool{
	"character varying": true,
	"varchar":           true,
	"character":         true,
	"char":              true,
	"bpchar":            true,
}

// IsCharacterType reports whether dataType carries a meaningful maximum length.
// Accepts both information_schema names ("character varying") and declared forms
// ("varchar(50)").
func IsCharacterType(dataType string) bool {
	t := strings.ToLower(strings.TrimSpace(dataType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return characterTypes[t]
}

// TableRef is one flat row of the table listing.
type TableRef struct {
	Catalog string
	Schema  string
	Name    string
	Kind    TableKind
}

// Column describes a single table column.
type Column struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	CharMaxLen *int   `json:"char_max_len"`
	IsNullable bool   `json:"is_nullable"`
	Default    string `json:"default"`
}

// Table is a relation with its columns in ordinal order.
type Table struct {
	Name    string    `json:"name"`
	Kind    TableKind `json:"table_type"`
	Columns []Column  `json:"columns"`
}

// Schema groups the tables of one namespace.
type Schema struct {
	Name   string  `json:"name"`
	Tables []Table `json:"tables"`
}

// Catalog is a database and its schemas.
type Catalog struct {
	Name    string   `json:"name"`
	Schemas []Schema `json:"schemas"`
}

// SchemaList is the result of listing the schemas of a database.
type SchemaList struct {
	DatabaseName string   `json:"database_name"`
	Schemas      []string `json:"schemas"`
}

// TableList is the result of listing the tables of a schema.
type TableList struct {
	DatabaseName string   `json:"database_name"`
	SchemaName   string   `json:"schema_name"`
	Tables       []string `json:"tables"`
}

// TableDetail is a single table resolved within its database and schema.
type TableDetail struct {
	DatabaseName string `json:"database_name"`
	SchemaName   string `json:"schema_name"`
	Table
}

// TableSample holds randomly ordered rows from a table.
type TableSample struct {
	DatabaseName string           `json:"database_name"`
	SchemaName   string           `json:"schema_name"`
	TableName    string           `json:"table_name"`
	Rows         []map[string]any `json:"sample_data"`
}

// TableConstraint is one (constraint, column) pair. Table-level CHECK
// constraints have an empty ColumnName.
type TableConstraint struct {
	Name       string `json:"constraint_name"`
	Type       string `json:"constraint_type"`
	ColumnName string `json:"column_name"`
}

// TableConstraints lists the constraints declared on a table.
type TableConstraints struct {
	DatabaseName string            `json:"database_name"`
	SchemaName   string            `json:"schema_name"`
	TableName    string            `json:"table_name"`
	Constraints  []TableConstraint `json:"constraints"`
}

// TableStats holds planner estimates for a table.
type TableStats struct {
	TableName   string `json:"table_name"`
	RowEstimate int64  `json:"row_estimate"`
	TotalBytes  int64  `json:"total_bytes"`
}

// SchemaStats lists TableStats for every table in a schema.
type SchemaStats struct {
	DatabaseName string       `json:"database_name"`
	SchemaName   string       `json:"schema_name"`
	Tables       []TableStats `json:"tables"`
}
