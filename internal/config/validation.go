package config

import (
	"fmt"
	"strings"
	"time"
)

var (
	quoteModes      = []string{"OFF", "MM", "MMRange"}
	reportCadences  = []string{"T", "D", "M", "A"}
	gatewayFamilies = []string{"binance", "binance-futures"}
)

// validate rejects an invalid configuration before any trading begins.
// This is the only place configuration errors are surfaced; the live loop
// assumes a valid, immutable Config.
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Exchange.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Report.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	if strings.TrimSpace(a.Instance) == "" {
		return fmt.Errorf("app.instance cannot be empty")
	}
	return nil
}

func (e *ExchangeConfig) validate() error {
	if !contains(gatewayFamilies, e.Name) {
		return fmt.Errorf("invalid value for exchange.name: %q, possible values are: %v", e.Name, gatewayFamilies)
	}
	if !strings.Contains(e.Pair, "/") {
		return fmt.Errorf("exchange.pair must be of the form BASE/QUOTE, got %q", e.Pair)
	}
	if e.IsMargin() && strings.TrimSpace(e.Symbol) == "" {
		return fmt.Errorf("exchange.symbol is required for the %s family", e.Name)
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if !contains(quoteModes, t.AutoQuote) {
		return fmt.Errorf("invalid value for trading.auto_quote: %q, possible values are: %v", t.AutoQuote, quoteModes)
	}
	if t.AutoQuote == "MMRange" && t.MMQuote0 == t.MMQuote100 {
		return fmt.Errorf("trading.mm_quote_0 and trading.mm_quote_100 must differ in MMRange mode")
	}
	if t.TolerancePct < 0 {
		return fmt.Errorf("trading.tolerance_in_percent must be >= 0")
	}
	if t.TradeTrials < 1 {
		return fmt.Errorf("trading.trade_trials must be >= 1")
	}
	if t.OrderSettleSeconds < 0 {
		return fmt.Errorf("trading.order_settle_seconds must be >= 0")
	}
	if t.PeriodMinutes <= 0 {
		return fmt.Errorf("trading.period_in_minutes must be > 0")
	}
	if t.MaxQuotePct < 0 || t.MaxQuotePct > 100 {
		return fmt.Errorf("trading.max_crypto_quote_in_percent must be within [0, 100]")
	}
	return nil
}

func (r *ReportConfig) validate() error {
	if !contains(reportCadences, r.Cadence) {
		return fmt.Errorf("invalid value for report.cadence: %q, possible values are: %v", r.Cadence, reportCadences)
	}
	if _, err := time.Parse("15:04", r.CutoffUTC); err != nil {
		return fmt.Errorf("report.cutoff_utc must be HH:MM, got %q", r.CutoffUTC)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if strings.TrimSpace(n.Telegram.BotToken) == "" || strings.TrimSpace(n.Telegram.ChatID) == "" {
			return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
