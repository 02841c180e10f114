package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9090"
price_provider: binance
poll_interval: 15s
market_page_size: 50
ledger_dir: /tmp/ledger
`), 0o600))

	cfg, err := getYaml(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "binance", cfg.PriceProvider)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Equal(t, 50, cfg.MarketPageSize)
	assert.Equal(t, "/tmp/ledger", cfg.LedgerDir)
}

func TestGetYaml_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: [broken"), 0o600))

	_, err := getYaml(path)
	require.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	applyDefaults(&cfg)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "coingecko", cfg.PriceProvider)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 100, cfg.MarketPageSize)
}

func TestValidate(t *testing.T) {
	ok := Config{PriceProvider: "bybit", MarketPageSize: 100}
	assert.NoError(t, validate(ok))

	badProvider := Config{PriceProvider: "kraken", MarketPageSize: 100}
	assert.Error(t, validate(badProvider))

	pageTooBig := Config{PriceProvider: "coingecko", MarketPageSize: 500}
	assert.Error(t, validate(pageTooBig))
}
