package sql

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/pg-discover/pkg/apperrors"
)

func TestCheckForInjection(t *testing.T) {
	tests := []struct {
		name            string
		value           string
		expectInjection bool
	}{
		{name: "plain table", value: "users", expectInjection: false},
		{name: "snake case", value: "order_line_items", expectInjection: false},
		{name: "mixed case", value: "CustomerAccounts", expectInjection: false},
		{name: "with digits", value: "events_2024", expectInjection: false},
		{name: "stacked query", value: "'; DROP TABLE users--", expectInjection: true},
		{name: "tautology", value: "' OR '1'='1", expectInjection: true},
		{name: "union select", value: "1 UNION SELECT * FROM passwords", expectInjection: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckForInjection("table", tt.value)
			if tt.expectInjection {
				if assert.NotNil(t, result) {
					assert.True(t, result.IsSQLi)
					assert.NotEmpty(t, result.Fingerprint)
					assert.Equal(t, "table", result.Kind)
					assert.Equal(t, tt.value, result.Value)
				}
			} else {
				assert.Nil(t, result)
			}
		})
	}
}

func TestCheckIdentifier(t *testing.T) {
	assert.NoError(t, CheckIdentifier("table", "users"))
	assert.NoError(t, CheckIdentifier("schema", "public"))
	assert.NoError(t, CheckIdentifier("table", `odd "name"`))
	assert.NoError(t, CheckIdentifier("table", "my table"))

	tests := []struct {
		name  string
		value string
	}{
		{name: "empty", value: ""},
		{name: "whitespace", value: "   "},
		{name: "too long", value: strings.Repeat("a", MaxIdentifierLength+1)},
		{name: "nul byte", value: "users\x00"},
		{name: "injection", value: "admin'; DELETE FROM logs; --"},
		// Legal once quoted, but reads as a comment; rejected by design.
		{name: "comment-like name", value: "a/*b*/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckIdentifier("table", tt.value)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidIdentifier), "got %v", err)
		})
	}
}
