package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.Equal(t, "data/keel", cfg.Storage.Path)
	assert.Equal(t, 4, cfg.Sync.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigMergesFiles(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	require.NoError(t, os.WriteFile(base, []byte(`
base_currency = "EUR"

[storage]
path = "/var/lib/keel"
`), 0644))

	override := filepath.Join(dir, "override.toml")
	require.NoError(t, os.WriteFile(override, []byte(`
[logging]
level = "debug"
`), 0644))

	cfg, err := LoadConfig(base, override, filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "EUR", cfg.BaseCurrency)
	assert.Equal(t, "/var/lib/keel", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched default survives the merge
	assert.Equal(t, 4, cfg.Sync.Workers)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("KEEL_BASE_CURRENCY", "gbp")
	t.Setenv("KEEL_LOG_LEVEL", "warn")
	t.Setenv("KEEL_PROVIDER_API_KEY", "test-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "GBP", cfg.BaseCurrency)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "test-key", cfg.Provider.APIKey)
}

func TestLoadConfigInvalidCurrencyFallsBack(t *testing.T) {
	t.Setenv("KEEL_BASE_CURRENCY", "DOLLARS")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.BaseCurrency)
}

func TestIsProduction(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.False(t, cfg.IsProduction())

	cfg.Environment = "Production"
	assert.True(t, cfg.IsProduction())

	cfg.Environment = " prod "
	assert.True(t, cfg.IsProduction())
}

func TestProviderTimeout(t *testing.T) {
	p := ProviderConfig{Timeout: "5s"}
	assert.Equal(t, "5s", p.GetTimeout().String())

	p.Timeout = "bogus"
	assert.Equal(t, "30s", p.GetTimeout().String())
}
