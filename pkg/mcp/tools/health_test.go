package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/pg-discover/pkg/cache"
)

type fixedStats cache.Stats

func (f fixedStats) CacheStats() cache.Stats { return cache.Stats(f) }

func TestRegisterHealthTool(t *testing.T) {
	s := newTestMCPServer()
	RegisterHealthTool(s, "test-version", nil)

	assert.Contains(t, listToolNames(t, s), "health")
}

func TestHealthTool_Execute(t *testing.T) {
	s := newTestMCPServer()
	RegisterHealthTool(s, "1.2.3", fixedStats{Hits: 4, Misses: 1, Entries: 1})

	response := callTool(t, s, "health", nil)
	assert.False(t, response.Result.IsError)
	assert.Equal(t, "text", response.Result.Content[0].Type)

	var health healthResult
	require.NoError(t, json.Unmarshal([]byte(response.Result.Content[0].Text), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	require.NotNil(t, health.Cache)
	assert.Equal(t, int64(4), health.Cache.Hits)
}

func TestHealthTool_VersionWithSpecialChars(t *testing.T) {
	s := newTestMCPServer()
	versionWithQuotes := `1.0.0-beta"test`
	RegisterHealthTool(s, versionWithQuotes, nil)

	response := callTool(t, s, "health", nil)

	var health healthResult
	require.NoError(t, json.Unmarshal([]byte(response.Result.Content[0].Text), &health))
	assert.Equal(t, versionWithQuotes, health.Version)
	assert.Nil(t, health.Cache)
}
