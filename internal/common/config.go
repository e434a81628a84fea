// Package common provides shared utilities for Keel
package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Keel
type Config struct {
	Environment  string         `toml:"environment"`
	BaseCurrency string         `toml:"base_currency"` // default currency for new accounts
	Storage      StorageConfig  `toml:"storage"`
	Provider     ProviderConfig `toml:"provider"`
	Sync         SyncConfig     `toml:"sync"`
	Logging      LoggingConfig  `toml:"logging"`
}

// StorageConfig holds the embedded database path.
type StorageConfig struct {
	Path string `toml:"path"`
}

// ProviderConfig holds market-data provider API configuration.
type ProviderConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ProviderConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// SyncConfig holds balance sync behavior settings.
type SyncConfig struct {
	Workers int `toml:"workers"` // max accounts syncing concurrently
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:  "development",
		BaseCurrency: "USD",
		Storage: StorageConfig{
			Path: "data/keel",
		},
		Provider: ProviderConfig{
			BaseURL:   "https://api.synthfinance.com",
			RateLimit: 10,
			Timeout:   "30s",
		},
		Sync: SyncConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	validateBaseCurrency(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("KEEL_ENV"); env != "" {
		config.Environment = env
	}

	if path := os.Getenv("KEEL_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if level := os.Getenv("KEEL_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if key := os.Getenv("KEEL_PROVIDER_API_KEY"); key != "" {
		config.Provider.APIKey = key
	}

	if url := os.Getenv("KEEL_PROVIDER_BASE_URL"); url != "" {
		config.Provider.BaseURL = url
	}

	if cc := os.Getenv("KEEL_BASE_CURRENCY"); cc != "" {
		config.BaseCurrency = strings.ToUpper(cc)
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// validateBaseCurrency ensures BaseCurrency is a plausible ISO code,
// defaulting to USD.
func validateBaseCurrency(config *Config) {
	cc := strings.ToUpper(strings.TrimSpace(config.BaseCurrency))
	if len(cc) != 3 {
		cc = "USD"
	}
	config.BaseCurrency = cc
}
