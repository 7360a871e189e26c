package config

import (
	"strings"
	"time"
)

// Config is the main configuration carrier for a bot instance.
// One instance equals one config file; nothing in here is mutated after Load.
type Config struct {
	App      AppConfig      `toml:"app"`
	Exchange ExchangeConfig `toml:"exchange"`
	Trading  TradingConfig  `toml:"trading"`
	Momentum MomentumConfig `toml:"momentum"`
	Report   ReportConfig   `toml:"report"`
	Notify   NotifyConfig   `toml:"notify"`
	Mayer    MayerConfig    `toml:"mayer"`
}

type AppConfig struct {
	Instance string `toml:"instance"`
	DataDir  string `toml:"data_dir"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	// StatsDB holds the sqlite file with the persisted daily statistics ring.
	StatsDB string `toml:"stats_db"`
}

type ExchangeConfig struct {
	// Name selects the gateway family: "binance" (spot) or "binance-futures" (margin).
	Name      string `toml:"name"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	Test      bool   `toml:"test"`
	// Pair is the spot trading pair, e.g. "BTC/USDT".
	Pair string `toml:"pair"`
	// Symbol is the contract symbol used by the margin family, e.g. "BTCUSDT".
	Symbol string `toml:"symbol"`
}

// Base returns the base currency of the configured pair ("BTC" for "BTC/USDT").
func (e ExchangeConfig) Base() string {
	base, _, _ := strings.Cut(e.Pair, "/")
	return base
}

// Quote returns the quote currency of the configured pair.
func (e ExchangeConfig) Quote() string {
	_, quote, _ := strings.Cut(e.Pair, "/")
	return quote
}

// IsMargin reports whether the configured gateway family trades margin contracts.
func (e ExchangeConfig) IsMargin() bool {
	return e.Name == "binance-futures"
}

type TradingConfig struct {
	// AutoQuote selects the target quote mode: "OFF", "MM" or "MMRange".
	AutoQuote      string  `toml:"auto_quote"`
	CryptoQuotePct float64 `toml:"crypto_quote_in_percent"`
	MMQuote0       float64 `toml:"mm_quote_0"`
	MMQuote100     float64 `toml:"mm_quote_100"`
	TolerancePct   float64 `toml:"tolerance_in_percent"`
	MaxQuotePct    float64 `toml:"max_crypto_quote_in_percent"`
	MaxLeveragePct float64 `toml:"max_leverage_in_percent"`

	TradeAdvantagePct  float64 `toml:"trade_advantage_in_percent"`
	TradeTrials        int     `toml:"trade_trials"`
	OrderSettleSeconds int     `toml:"order_settle_seconds"`
	PeriodMinutes      float64 `toml:"period_in_minutes"`

	StopBuy               bool `toml:"stop_buy"`
	StopSell              bool `toml:"stop_sell"`
	BacktradeOnlyOnProfit bool `toml:"backtrade_only_on_profit"`
	KeepOrders            bool `toml:"keep_orders"`

	// Start values recorded at position initiation (margin family only).
	StartCryptoPrice     float64 `toml:"start_crypto_price"`
	StartMarginBalance   float64 `toml:"start_margin_balance"`
	StartMayerMultiple   float64 `toml:"start_mayer_multiple"`
	StartDate            string  `toml:"start_date"`
	NetDepositsBase      float64 `toml:"net_deposits_in_base_currency"`
	ReferenceNetDeposits float64 `toml:"reference_net_deposits"`
}

// Period returns the sleep interval between decision cycles.
func (t TradingConfig) Period() time.Duration {
	return time.Duration(t.PeriodMinutes * float64(time.Minute))
}

// SettleWait returns the time a limit order is given to fill before
// the cancel-or-keep check.
func (t TradingConfig) SettleWait() time.Duration {
	return time.Duration(t.OrderSettleSeconds) * time.Second
}

type MomentumConfig struct {
	// URL serves the current and average Mayer multiple as JSON.
	URL string `toml:"url"`
	// AverageFile is the file maintained by the mayer service holding the
	// trailing daily average price; used for the local fallback computation.
	AverageFile    string `toml:"average_file"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type ReportConfig struct {
	// Cadence: "T" trade+daily, "D" daily, "M" monthly, "A" annual.
	Cadence string `toml:"cadence"`
	// CutoffUTC is the wall-clock time (HH:MM, UTC) after which the daily
	// statistics record may be written once.
	CutoffUTC string `toml:"cutoff_utc"`
	CSVPath   string `toml:"csv_path"`
	Info      string `toml:"info"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// MayerConfig configures the rolling-average service (cmd/mayer).
type MayerConfig struct {
	DBPath string `toml:"db_path"`
	// BackupURL serves historical daily closes as JSON for gap backfill.
	BackupURL string `toml:"backup_url"`
	Pair      string `toml:"pair"`
}
