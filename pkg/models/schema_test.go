package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTableKind(t *testing.T) {
	tests := []struct {
		input    string
		expected TableKind
	}{
		{"BASE TABLE", TableKindTable},
		{"VIEW", TableKindView},
		{"FOREIGN", TableKindUnknown},
		{"LOCAL TEMPORARY", TableKindUnknown},
		{"", TableKindUnknown},
		{"base table", TableKindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizeTableKind(tt.input)
			assert.Equal(t, tt.expected, got)
			// Applying twice must not change the result.
			assert.Equal(t, got, NormalizeTableKind(string(got)))
		})
	}
}

func TestIsCharacterType(t *testing.T) {
	assert.True(t, IsCharacterType("character varying"))
	assert.True(t, IsCharacterType("character"))
	assert.True(t, IsCharacterType("varchar(50)"))
	assert.True(t, IsCharacterType("CHAR (3)"))
	assert.False(t, IsCharacterType("integer"))
	assert.False(t, IsCharacterType("text"))
	assert.False(t, IsCharacterType("bit varying"))
	assert.False(t, IsCharacterType(""))
}

func TestIsSystemSchema(t *testing.T) {
	assert.True(t, IsSystemSchema("pg_catalog"))
	assert.True(t, IsSystemSchema("information_schema"))
	assert.False(t, IsSystemSchema("public"))
	assert.False(t, IsSystemSchema("pg_toast_x"))
}

func TestColumn_CharMaxLenSerializesAsNull(t *testing.T) {
	data, err := json.Marshal(Column{Name: "id", DataType: "integer"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"id","data_type":"integer","char_max_len":null,"is_nullable":false,"default":""}`, string(data))
}

func TestTableDetail_FlattensTable(t *testing.T) {
	detail := TableDetail{
		DatabaseName: "db1",
		SchemaName:   "public",
		Table:        Table{Name: "users", Kind: TableKindTable, Columns: []Column{}},
	}
	data, err := json.Marshal(detail)
	require.NoError(t, err)
	assert.JSONEq(t, `{"database_name":"db1","schema_name":"public","name":"users","table_type":"table","columns":[]}`, string(data))
}
