package report

import (
	"path/filepath"
	"testing"
	"time"

	"balancer/internal/config"
	"balancer/internal/momentum"
	"balancer/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(margin bool) *config.Config {
	cfg := &config.Config{}
	cfg.App.Instance = "rb1"
	cfg.Exchange.Name = "binance"
	cfg.Exchange.Pair = "BTC/USDT"
	if margin {
		cfg.Exchange.Name = "binance-futures"
		cfg.Exchange.Symbol = "BTCUSDT"
	}
	cfg.Trading.AutoQuote = "MM"
	cfg.Trading.CryptoQuotePct = 100
	cfg.Trading.MaxQuotePct = 100
	cfg.Trading.MaxLeveragePct = 100
	cfg.Trading.TradeTrials = 5
	cfg.Report.Cadence = "D"
	cfg.Report.CutoffUTC = "12:01"
	return cfg
}

func testBuilder(t *testing.T, cfg *config.Config) *Builder {
	t.Helper()
	cfg.Report.CSVPath = filepath.Join(t.TempDir(), "report.csv")
	b, err := NewBuilder(cfg, nil, nil, nil, nil, nil, nil, "1.5.2")
	require.NoError(t, err)
	return b
}

func floatPtr(v float64) *float64 { return &v }

func TestInWindow(t *testing.T) {
	b := testBuilder(t, testConfig(false))
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	assert.False(t, b.inWindow(day.Add(12*time.Hour)))
	assert.True(t, b.inWindow(day.Add(12*time.Hour+5*time.Minute)))
	assert.True(t, b.inWindow(day.Add(12*time.Hour+24*time.Minute)))
	assert.False(t, b.inWindow(day.Add(12*time.Hour+30*time.Minute)))
}

func TestDueCadences(t *testing.T) {
	midMonth := time.Date(2026, 8, 28, 12, 5, 0, 0, time.UTC)
	endOfMonth := time.Date(2026, 8, 31, 12, 5, 0, 0, time.UTC)
	endOfYear := time.Date(2026, 12, 31, 12, 5, 0, 0, time.UTC)

	cfg := testConfig(false)
	b := testBuilder(t, cfg)

	cfg.Report.Cadence = CadenceDaily
	assert.True(t, b.due(midMonth))

	cfg.Report.Cadence = CadenceTrade
	assert.True(t, b.due(midMonth))

	cfg.Report.Cadence = CadenceMonthly
	assert.False(t, b.due(midMonth))
	assert.True(t, b.due(endOfMonth))

	cfg.Report.Cadence = CadenceAnnual
	assert.False(t, b.due(endOfMonth))
	assert.True(t, b.due(endOfYear))
}

func TestAdviceLine(t *testing.T) {
	assert.Equal(t, "Mayer multiple: n/a (n/a)",
		adviceLine(&figures{advice: momentum.AdviceNA}))
	assert.Equal(t, "Mayer multiple: 1.10 (< 1.40 = BUY)",
		adviceLine(&figures{reading: &momentum.Reading{Current: 1.1, Average: 1.4}, advice: momentum.AdviceBuy}))
	assert.Equal(t, "Mayer multiple: 2.50 (> 2.40 = SELL)",
		adviceLine(&figures{reading: &momentum.Reading{Current: 2.5, Average: 1.4}, advice: momentum.AdviceSell}))
	assert.Equal(t, "Mayer multiple: 1.60 (< 2.40 = HOLD)",
		adviceLine(&figures{reading: &momentum.Reading{Current: 1.6, Average: 1.4}, advice: momentum.AdviceHold}))
}

func TestPerformanceLinesSpot(t *testing.T) {
	b := testBuilder(t, testConfig(false))
	fig := &figures{
		price:         8800,
		marginBalance: 1.5,
		netDeposits:   floatPtr(1.0),
		actualQuote:   50,
		today: stats.Today{
			DailyStat:           stats.DailyStat{MarginBalance: 1.5, FiatMarginBalance: 5000, Price: 8800},
			MarginBalanceChange: floatPtr(2.5),
			PriceChange:         floatPtr(10),
			Yesterday:           &stats.DailyStat{MarginBalance: 1.4, FiatMarginBalance: 5100, Price: 8000},
		},
	}
	lines := b.performanceLines(fig)

	assert.Contains(t, lines, "Net deposits BTC: 1.0000")
	assert.Contains(t, lines, "Overall performance in BTC: +0.5000 (+50.00%)")
	assert.Contains(t, lines, "Balance BTC: 1.5000 (+2.50%)*")
	assert.Contains(t, lines, "BTC price USDT: 8800 (+10.00%)*")
	assert.Contains(t, lines, "* (change since yesterday noon)")
	// Spot reports carry no leverage or target position lines.
	for _, line := range lines {
		assert.NotContains(t, line, "leverage")
		assert.NotContains(t, line, "Target position")
	}
}

func TestPerformanceLinesMargin(t *testing.T) {
	b := testBuilder(t, testConfig(true))
	fig := &figures{
		price:         8800,
		marginBalance: 1.5,
		actualQuote:   99,
		leveragePct:   floatPtr(40),
		targetPos:     floatPtr(5200),
		liquidation:   floatPtr(3500),
		today: stats.Today{
			DailyStat:           stats.DailyStat{MarginBalance: 1.5, FiatMarginBalance: 5000, Price: 8800},
			MarginBalanceChange: floatPtr(6),
			PriceChange:         floatPtr(10),
		},
	}
	lines := b.performanceLines(fig)

	assert.Contains(t, lines, "Net deposits BTC: n/a")
	assert.Contains(t, lines, "Margin balance BTC: 1.5000 (+6.00%)*")
	assert.Contains(t, lines, "Position USDT: 5000")
	// 6% balance change minus 10% price change at 40% leverage.
	assert.Contains(t, lines, "Value change: +2.0000%*")
	assert.Contains(t, lines, "Margin leverage: 40%")
	assert.Contains(t, lines, "Target position USDT: 5200")
	assert.Contains(t, lines, "Liquidation price USDT: 3500")
	assert.Contains(t, lines, "Actual quote: 99%  (Max.)")
}

func TestTradingResultLine(t *testing.T) {
	b := testBuilder(t, testConfig(false))
	fig := &figures{
		price: 8800,
		today: stats.Today{
			DailyStat: stats.DailyStat{MarginBalance: 1.5, FiatMarginBalance: 5000},
			Yesterday: &stats.DailyStat{MarginBalance: 1.4, FiatMarginBalance: 5100, Price: 8000},
		},
	}
	// (1.5-1.4)*8800 + 5000 - 5100 = 780
	assert.Equal(t, "Trading result in USDT: +780*", b.tradingResultLine(fig))

	fig.today.Yesterday = nil
	assert.Equal(t, "Trading result in USDT: n/a*", b.tradingResultLine(fig))
}

func TestCSVRowMatchesLabels(t *testing.T) {
	b := testBuilder(t, testConfig(false))
	fig := &figures{
		price:       8800,
		actualQuote: 50,
		reading:     &momentum.Reading{Current: 1.42},
	}
	labels, row := b.csvRow(fig, time.Date(2026, 8, 28, 12, 5, 0, 0, time.UTC))

	require.Equal(t, len(labels), len(row))
	assert.Equal(t, "Bot", labels[0])
	assert.Equal(t, "rb1", row[0])
	assert.Contains(t, row[1], "2026-08-28")
}
