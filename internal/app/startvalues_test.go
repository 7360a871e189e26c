package app

import (
	"os"
	"path/filepath"
	"testing"

	"balancer/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAppConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Instance = "rb1"
	cfg.App.DataDir = t.TempDir()
	return cfg
}

func TestStartValuesRoundtrip(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.Trading.StartCryptoPrice = 10000
	cfg.Trading.StartMarginBalance = 1.5
	cfg.Trading.StartMayerMultiple = 1.42
	cfg.Trading.StartDate = "2026-08-28"
	cfg.Trading.ReferenceNetDeposits = 1.2
	require.NoError(t, saveStartValues(cfg))

	restored := testAppConfig(t)
	restored.App.DataDir = cfg.App.DataDir
	applyStartValues(restored)

	assert.Equal(t, 10000.0, restored.Trading.StartCryptoPrice)
	assert.Equal(t, 1.5, restored.Trading.StartMarginBalance)
	assert.Equal(t, 1.42, restored.Trading.StartMayerMultiple)
	assert.Equal(t, "2026-08-28", restored.Trading.StartDate)
	assert.Equal(t, 1.2, restored.Trading.ReferenceNetDeposits)
}

func TestApplyStartValuesMissingFile(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.Trading.StartCryptoPrice = 9000
	applyStartValues(cfg)
	// Nothing persisted yet, the config stays untouched.
	assert.Equal(t, 9000.0, cfg.Trading.StartCryptoPrice)
}

func TestApplyStartValuesKeepsConfiguredDeposits(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.Trading.NetDepositsBase = 0
	require.NoError(t, saveStartValues(cfg))

	restored := testAppConfig(t)
	restored.App.DataDir = cfg.App.DataDir
	restored.Trading.NetDepositsBase = 2.5
	applyStartValues(restored)
	// A zero in the sidecar never clears the configured override.
	assert.Equal(t, 2.5, restored.Trading.NetDepositsBase)
}

func TestPIDFile(t *testing.T) {
	dir := t.TempDir()
	pid, err := WritePID(dir, "rb1")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "rb1.pid"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "rb1")

	pid.Remove()
	_, err = os.Stat(filepath.Join(dir, "rb1.pid"))
	assert.True(t, os.IsNotExist(err))
}

func TestBuildGateway(t *testing.T) {
	spot, err := buildGateway(config.ExchangeConfig{Name: "binance", Pair: "BTC/USDT"})
	require.NoError(t, err)
	assert.Equal(t, "binance", spot.Name())

	futures, err := buildGateway(config.ExchangeConfig{Name: "binance-futures", Pair: "BTC/USDT", Symbol: "BTCUSDT"})
	require.NoError(t, err)
	assert.Equal(t, "binance-futures", futures.Name())

	_, err = buildGateway(config.ExchangeConfig{Name: "bitmex"})
	assert.Error(t, err)
}
