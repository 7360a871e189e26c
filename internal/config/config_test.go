package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
app:
  instance: rb1
`))
	require.NoError(t, err)

	assert.Equal(t, "rb1", cfg.App.Instance)
	assert.Equal(t, "binance", cfg.Exchange.Name)
	assert.Equal(t, "BTC/USDT", cfg.Exchange.Pair)
	assert.Equal(t, "OFF", cfg.Trading.AutoQuote)
	assert.Equal(t, 50.0, cfg.Trading.CryptoQuotePct)
	assert.Equal(t, 2.0, cfg.Trading.TolerancePct)
	assert.Equal(t, 5, cfg.Trading.TradeTrials)
	assert.Equal(t, 10*time.Minute, cfg.Trading.Period())
	assert.Equal(t, 90*time.Second, cfg.Trading.SettleWait())
	assert.Equal(t, "D", cfg.Report.Cadence)
	assert.Equal(t, "12:01", cfg.Report.CutoffUTC)
	// Paths derive from the instance name.
	assert.Equal(t, filepath.Join("data", "rb1.db"), cfg.App.StatsDB)
	assert.Equal(t, filepath.Join("data", "rb1.csv"), cfg.Report.CSVPath)
}

func TestLoadExplicitZeroSurvives(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
app:
  instance: rb1
trading:
  tolerance_in_percent: 0
`))
	require.NoError(t, err)
	assert.Zero(t, cfg.Trading.TolerancePct)
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
app:
  instance: rb2
  data_dir: /var/lib/rb
  log_level: debug
exchange:
  name: binance-futures
  pair: BTC/USDT
  symbol: BTCUSDT
  api_key: key
  api_secret: secret
trading:
  auto_quote: MMRange
  mm_quote_0: 2.4
  mm_quote_100: 1.0
  crypto_quote_in_percent: 60
  max_leverage_in_percent: 150
report:
  cadence: T
  cutoff_utc: "13:30"
notify:
  telegram:
    enabled: true
    bot_token: token
    chat_id: "42"
`))
	require.NoError(t, err)

	assert.True(t, cfg.Exchange.IsMargin())
	assert.Equal(t, "BTC", cfg.Exchange.Base())
	assert.Equal(t, "USDT", cfg.Exchange.Quote())
	assert.Equal(t, "MMRange", cfg.Trading.AutoQuote)
	assert.Equal(t, 150.0, cfg.Trading.MaxLeveragePct)
	assert.Equal(t, "T", cfg.Report.Cadence)
	assert.True(t, cfg.Notify.Telegram.Enabled)
}

func TestLoadRejectsInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"bad exchange": `
exchange:
  name: kraken
`,
		"bad quote mode": `
trading:
  auto_quote: AUTO
`,
		"bad cadence": `
report:
  cadence: X
`,
		"bad cutoff": `
report:
  cutoff_utc: "25:99"
`,
		"margin without symbol": `
exchange:
  name: binance-futures
`,
		"mmrange degenerate": `
trading:
  auto_quote: MMRange
  mm_quote_0: 2
  mm_quote_100: 2
`,
		"telegram incomplete": `
notify:
  telegram:
    enabled: true
`,
	} {
		_, err := Load(writeConfig(t, content))
		assert.Error(t, err, name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	_, err = Load("")
	assert.Error(t, err)
}
