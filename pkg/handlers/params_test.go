package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestParseDatabase(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/databases/db1/schemas", nil)
	req.SetPathValue("database", "db1")
	w := httptest.NewRecorder()

	db, ok := ParseDatabase(w, req, zap.NewNop())
	assert.True(t, ok)
	assert.Equal(t, "db1", db)
}

func TestParseSchema_Blank(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.SetPathValue("schema", "  ")
	w := httptest.NewRecorder()

	_, ok := ParseSchema(w, req, zap.NewNop())
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_schema")
}

func TestParseTable_KeepsRawName(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.SetPathValue("table", `odd "name"`)

	table, ok := ParseTable(httptest.NewRecorder(), req, zap.NewNop())
	assert.True(t, ok)
	assert.Equal(t, `odd "name"`, table)
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query  string
		want   int
		wantOK bool
	}{
		{"", 0, true},
		{"?limit=25", 25, true},
		{"?limit=0", 0, false},
		{"?limit=-3", 0, false},
		{"?limit=ten", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/sample"+tt.query, nil)
			w := httptest.NewRecorder()

			got, ok := ParseLimit(w, req, zap.NewNop())
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}
