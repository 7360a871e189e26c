package config

import "path/filepath"

const (
	defaultInstance       = "balancer"
	defaultDataDir        = "data"
	defaultLogLevel       = "info"
	defaultExchange       = "binance"
	defaultPair           = "BTC/USDT"
	defaultAutoQuote      = "OFF"
	defaultCryptoQuote    = 50.0
	defaultTolerance      = 2.0
	defaultMaxQuote       = 100.0
	defaultMaxLeverage    = 100.0
	defaultTradeAdvantage = 0.02
	defaultTradeTrials    = 5
	defaultSettleSeconds  = 90
	defaultPeriodMinutes  = 10.0
	defaultMomentumURL    = "https://bitcoinition.com/current.json"
	defaultMomentumWait   = 10
	defaultCadence        = "D"
	defaultCutoffUTC      = "12:01"
)

// applyDefaults fills every field the config file did not set explicitly.
// keys holds the flattened set of keys present in the file, so that an
// explicit zero value (e.g. tolerance_in_percent = 0) is preserved.
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Exchange.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Momentum.applyDefaults(keys)
	c.Report.applyDefaults(keys)
	c.Mayer.applyDefaults(keys)

	// Cross-section defaults derived from the instance name.
	if c.App.StatsDB == "" {
		c.App.StatsDB = filepath.Join(c.App.DataDir, c.App.Instance+".db")
	}
	if c.Momentum.AverageFile == "" {
		c.Momentum.AverageFile = filepath.Join(c.App.DataDir, "mayer.avg")
	}
	if c.Report.CSVPath == "" {
		c.Report.CSVPath = filepath.Join(c.App.DataDir, c.App.Instance+".csv")
	}
	if c.Mayer.DBPath == "" {
		c.Mayer.DBPath = filepath.Join(c.App.DataDir, "mayer.db")
	}
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if !keys.has("app.instance") && a.Instance == "" {
		a.Instance = defaultInstance
	}
	if !keys.has("app.data_dir") && a.DataDir == "" {
		a.DataDir = defaultDataDir
	}
	if !keys.has("app.log_level") && a.LogLevel == "" {
		a.LogLevel = defaultLogLevel
	}
}

func (e *ExchangeConfig) applyDefaults(keys keySet) {
	if !keys.has("exchange.name") && e.Name == "" {
		e.Name = defaultExchange
	}
	if !keys.has("exchange.pair") && e.Pair == "" {
		e.Pair = defaultPair
	}
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	if !keys.has("trading.auto_quote") && t.AutoQuote == "" {
		t.AutoQuote = defaultAutoQuote
	}
	if !keys.has("trading.crypto_quote_in_percent") && t.CryptoQuotePct == 0 {
		t.CryptoQuotePct = defaultCryptoQuote
	}
	if !keys.has("trading.tolerance_in_percent") && t.TolerancePct == 0 {
		t.TolerancePct = defaultTolerance
	}
	if !keys.has("trading.max_crypto_quote_in_percent") && t.MaxQuotePct == 0 {
		t.MaxQuotePct = defaultMaxQuote
	}
	if !keys.has("trading.max_leverage_in_percent") && t.MaxLeveragePct == 0 {
		t.MaxLeveragePct = defaultMaxLeverage
	}
	if !keys.has("trading.trade_advantage_in_percent") && t.TradeAdvantagePct == 0 {
		t.TradeAdvantagePct = defaultTradeAdvantage
	}
	if !keys.has("trading.trade_trials") && t.TradeTrials == 0 {
		t.TradeTrials = defaultTradeTrials
	}
	if !keys.has("trading.order_settle_seconds") && t.OrderSettleSeconds == 0 {
		t.OrderSettleSeconds = defaultSettleSeconds
	}
	if !keys.has("trading.period_in_minutes") && t.PeriodMinutes == 0 {
		t.PeriodMinutes = defaultPeriodMinutes
	}
}

func (m *MomentumConfig) applyDefaults(keys keySet) {
	if !keys.has("momentum.url") && m.URL == "" {
		m.URL = defaultMomentumURL
	}
	if !keys.has("momentum.timeout_seconds") && m.TimeoutSeconds == 0 {
		m.TimeoutSeconds = defaultMomentumWait
	}
}

func (r *ReportConfig) applyDefaults(keys keySet) {
	if !keys.has("report.cadence") && r.Cadence == "" {
		r.Cadence = defaultCadence
	}
	if !keys.has("report.cutoff_utc") && r.CutoffUTC == "" {
		r.CutoffUTC = defaultCutoffUTC
	}
}

func (m *MayerConfig) applyDefaults(keys keySet) {
	if !keys.has("mayer.pair") && m.Pair == "" {
		m.Pair = defaultPair
	}
}
