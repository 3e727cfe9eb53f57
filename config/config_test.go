package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	policy, err := cfg.Valuation.Policy()
	assert.NoError(t, err)
	assert.Equal(t, ledger.Warn, policy)

	ttl, err := cfg.Valuation.CacheTTL()
	assert.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ttl)
}

func TestLoadFromFileYAML(t *testing.T) {
	path := writeFile(t, "ledger.yaml", `
storage:
  driver: sqlite
  path: /tmp/ledger.db
valuation:
  missing_data: reject
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/ledger.db", cfg.Storage.Path)
	assert.Equal(t, "reject", cfg.Valuation.MissingData)
	// unset fields keep their defaults.
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "5m", cfg.Valuation.PriceCacheTTL)
}

func TestLoadFromFileJSON(t *testing.T) {
	path := writeFile(t, "ledger.json", `{"storage":{"driver":"jsonl","path":"book.jsonl"},"log":{"level":"debug"}}`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, DriverJSONL, cfg.Storage.Driver)
	assert.Equal(t, "book.jsonl", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	testCases := map[string]string{
		"unknown driver": "storage:\n  driver: postgres\n",
		"empty path":     "storage:\n  path: \"\"\n",
		"bad level":      "log:\n  level: loud\n",
		"bad policy":     "valuation:\n  missing_data: ignore\n",
		"bad ttl":        "valuation:\n  price_cache_ttl: soon\n",
		"negative ttl":   "valuation:\n  price_cache_ttl: -1m\n",
		"not a config":   "[1, 2",
	}
	for name, content := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFromFile(writeFile(t, "ledger.yaml", content))
			assert.Error(t, err)
		})
	}
}

func TestSaveToFile(t *testing.T) {
	for _, name := range []string{"ledger.yaml", "ledger.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := Default()
			cfg.Storage = StorageConfig{Driver: DriverSQLite, Path: "book.db"}
			require.NoError(t, cfg.SaveToFile(path))

			got, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDBPath, "/data/book.db")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvMissingData, "reject")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "/data/book.db", cfg.Storage.Path)
	assert.Equal(t, "info", cfg.Log.Level, "empty variables are ignored")
	assert.Equal(t, "reject", cfg.Valuation.MissingData)
}

func TestLoadEnv(t *testing.T) {
	// registers the restore of the variable before unsetting it.
	t.Setenv(EnvLogLevel, "")
	require.NoError(t, os.Unsetenv(EnvLogLevel))

	env := writeFile(t, ".env", EnvLogLevel+"=debug\n")
	require.NoError(t, LoadEnv(env, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "debug", os.Getenv(EnvLogLevel))

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "debug", cfg.Log.Level)
}
