package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"QUERYKIT_REDIS_ADDR", "QUERYKIT_REDIS_PASSWORD", "QUERYKIT_REDIS_DB",
	"QUERYKIT_INDEX", "QUERYKIT_PREFIX", "QUERYKIT_PAGE_SIZE",
	"QUERYKIT_BACKEND", "QUERYKIT_FALLBACK", "QUERYKIT_LOG_LEVEL",
}

// clearEnv unsets every key for the test; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, "order:", cfg.Prefix)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, BackendHash, cfg.Backend)
	assert.False(t, cfg.Fallback)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvAndFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"QUERYKIT_BACKEND=search\nQUERYKIT_PAGE_SIZE=50\nQUERYKIT_INDEX=from_file\n"), 0o600))
	t.Setenv("QUERYKIT_INDEX", "orders_idx")
	t.Setenv("QUERYKIT_FALLBACK", "true")
	t.Setenv("QUERYKIT_REDIS_DB", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSearch, cfg.Backend)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, "orders_idx", cfg.Index, "environment wins over the file")
	assert.True(t, cfg.Fallback)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"QUERYKIT_BACKEND":   "postgres",
		"QUERYKIT_PAGE_SIZE": "0",
		"QUERYKIT_REDIS_DB":  "two",
		"QUERYKIT_FALLBACK":  "maybe",
		"QUERYKIT_LOG_LEVEL": "chatty",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
