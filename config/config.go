// Package config loads the settings of the ledger tools from a YAML or JSON
// file, a .env file and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/ledger"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the file settings.
const (
	EnvConfigFile  = "LEDGER_CONFIG"
	EnvDBPath      = "LEDGER_DB_PATH"
	EnvLogLevel    = "LEDGER_LOG_LEVEL"
	EnvMissingData = "LEDGER_MISSING_DATA"
)

// Storage drivers.
const (
	DriverJSONL  = "jsonl"
	DriverSQLite = "sqlite"
)

// Config represents the complete ledger configuration
type Config struct {
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Valuation ValuationConfig `json:"valuation" yaml:"valuation"`
}

// StorageConfig tells where the book is kept.
type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"` // "jsonl" or "sqlite"
	Path   string `json:"path" yaml:"path"`
}

// LogConfig contains logging parameters
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// ValuationConfig contains balance computation parameters
type ValuationConfig struct {
	MissingData   string `json:"missing_data" yaml:"missing_data"`                           // "warn" or "reject"
	PriceCacheTTL string `json:"price_cache_ttl,omitempty" yaml:"price_cache_ttl,omitempty"` // e.g. "5m"
}

// Policy returns the missing data policy.
func (v ValuationConfig) Policy() (ledger.MissingDataPolicy, error) {
	return ledger.ParseMissingDataPolicy(v.MissingData)
}

// CacheTTL converts the cache TTL string to time.Duration
func (v ValuationConfig) CacheTTL() (time.Duration, error) {
	if v.PriceCacheTTL == "" {
		return 0, nil
	}
	return time.ParseDuration(v.PriceCacheTTL)
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: DriverJSONL,
			Path:   "ledger.jsonl",
		},
		Log: LogConfig{
			Level: "info",
		},
		Valuation: ValuationConfig{
			MissingData:   "warn",
			PriceCacheTTL: "5m",
		},
	}
}

// Load reads the optional .env file, then the configuration file at path
// (defaults when path is empty), then applies the environment overrides.
func Load(path string) (*Config, error) {
	if err := LoadEnv(".env"); err != nil {
		return nil, err
	}
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadEnv loads variables from .env files, without overriding the ones
// already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a file (JSON or YAML)
func LoadFromFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// readFile parses path over the defaults.
func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml and .yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides the settings with the non empty environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvMissingData); v != "" {
		c.Valuation.MissingData = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Storage.Driver != DriverJSONL && c.Storage.Driver != DriverSQLite {
		return fmt.Errorf("storage.driver must be '%s' or '%s'", DriverJSONL, DriverSQLite)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	if _, err := c.Valuation.Policy(); err != nil {
		return fmt.Errorf("valuation.missing_data: %w", err)
	}
	ttl, err := c.Valuation.CacheTTL()
	if err != nil {
		return fmt.Errorf("valuation.price_cache_ttl: %w", err)
	}
	if ttl < 0 {
		return fmt.Errorf("valuation.price_cache_ttl must not be negative")
	}
	return nil
}
