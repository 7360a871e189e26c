// Package report builds the trade and daily reports: a structured text
// message pushed through the notifier and a daily CSV row.
package report

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"balancer/internal/account"
	"balancer/internal/config"
	"balancer/internal/engine"
	"balancer/internal/gateway/exchange"
	"balancer/internal/gateway/notifier"
	"balancer/internal/logger"
	"balancer/internal/momentum"
	"balancer/internal/quote"
	"balancer/internal/stats"
)

// Cadence values.
const (
	CadenceTrade   = "T"
	CadenceDaily   = "D"
	CadenceMonthly = "M"
	CadenceAnnual  = "A"
)

const na = "n/a"

// dailyWindow is how long past the cutoff the daily report may still fire.
const dailyWindow = 24 * time.Minute

type Builder struct {
	cfg      *config.Config
	account  *account.Account
	engine   *engine.Engine
	calc     *quote.Calculator
	tracker  *stats.Tracker
	source   *momentum.Combined
	notify   notifier.TextNotifier
	csv      *CSV
	version  string
	started  time.Time
	cutoff   time.Duration
	sentDay  int
	now      func() time.Time
	hostname string
}

func NewBuilder(cfg *config.Config, acc *account.Account, eng *engine.Engine, calc *quote.Calculator,
	tracker *stats.Tracker, source *momentum.Combined, notify notifier.TextNotifier, version string) (*Builder, error) {
	parsed, err := time.Parse("15:04", cfg.Report.CutoffUTC)
	if err != nil {
		return nil, fmt.Errorf("invalid cutoff %q: %w", cfg.Report.CutoffUTC, err)
	}
	host, _ := os.Hostname()
	return &Builder{
		cfg:      cfg,
		account:  acc,
		engine:   eng,
		calc:     calc,
		tracker:  tracker,
		source:   source,
		notify:   notify,
		csv:      NewCSV(cfg.Report.CSVPath),
		version:  version,
		started:  time.Now().UTC(),
		cutoff:   time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute,
		now:      time.Now,
		hostname: host,
	}, nil
}

// Daily emits the daily report once per day inside the window after the
// cutoff, or right away when immediately is set. The CSV row is written
// every day; the notification only on due dates of the configured cadence.
func (b *Builder) Daily(ctx context.Context, immediately bool) error {
	now := b.now().UTC()
	if !immediately && (!b.inWindow(now) || b.sentDay == now.Day()) {
		return nil
	}
	fig, err := b.collect(ctx, true)
	if err != nil {
		return err
	}
	labels, row := b.csvRow(fig, now)
	if err := b.csv.Append(labels, row, now); err != nil {
		logger.Errorf("Cannot update CSV: %v", err)
	}
	if immediately || b.due(now) {
		msg := b.render(nil, fig)
		msg.Title = fmt.Sprintf("%s report %s", b.cadenceName(), b.cfg.App.Instance)
		if err := b.notify.SendText(msg.RenderMarkdown()); err != nil {
			logger.Errorf("Cannot send daily report: %v", err)
		}
	}
	b.sentDay = now.Day()
	return nil
}

// Trade emits a report for a freshly filled order, cadence T only.
func (b *Builder) Trade(ctx context.Context, order *exchange.Order) error {
	if b.cfg.Report.Cadence != CadenceTrade {
		return nil
	}
	fig, err := b.collect(ctx, false)
	if err != nil {
		return err
	}
	msg := b.render(order, fig)
	msg.Title = fmt.Sprintf("Trade report %s", b.cfg.App.Instance)
	return b.notify.SendText(msg.RenderMarkdown())
}

func (b *Builder) inWindow(now time.Time) bool {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := now.Sub(midnight)
	return offset > b.cutoff && offset < b.cutoff+dailyWindow
}

// due reports whether the cadence wants a notification today.
func (b *Builder) due(now time.Time) bool {
	switch b.cfg.Report.Cadence {
	case CadenceTrade, CadenceDaily:
		return true
	}
	lastOfMonth := now.AddDate(0, 0, 1).Month() != now.Month()
	if !lastOfMonth {
		return false
	}
	if b.cfg.Report.Cadence == CadenceMonthly {
		return true
	}
	return now.Month() == time.December
}

func (b *Builder) cadenceName() string {
	switch b.cfg.Report.Cadence {
	case CadenceMonthly:
		return "Monthly"
	case CadenceAnnual:
		return "Annual"
	}
	return "Daily"
}

func (b *Builder) render(order *exchange.Order, fig *figures) notifier.StructuredMessage {
	msg := notifier.StructuredMessage{Timestamp: b.now().UTC(), Footer: b.cfg.Report.Info}
	if order != nil {
		msg.Sections = append(msg.Sections, notifier.MessageSection{
			Title: "Trade",
			Lines: []string{order.String()},
		})
	}
	msg.Sections = append(msg.Sections,
		notifier.MessageSection{Title: "Performance", Lines: b.performanceLines(fig)},
	)
	if b.cfg.Exchange.IsMargin() {
		msg.Sections = append(msg.Sections,
			notifier.MessageSection{Title: "Base information", Lines: b.baseValueLines()},
		)
	}
	msg.Sections = append(msg.Sections,
		notifier.MessageSection{Title: "Assessment / advice", Lines: []string{adviceLine(fig)}},
		notifier.MessageSection{Title: "Your settings", Lines: b.settingsLines()},
		notifier.MessageSection{Title: "General", Lines: b.generalLines()},
	)
	return msg
}

func (b *Builder) performanceLines(fig *figures) []string {
	base := b.cfg.Exchange.Base()
	quoteCur := b.cfg.Exchange.Quote()
	var lines []string
	if fig.netDeposits == nil {
		lines = append(lines,
			fmt.Sprintf("Net deposits %s: %s", base, na),
			fmt.Sprintf("Overall performance in %s: %s (%% n/a)", base, na))
	} else {
		lines = append(lines, fmt.Sprintf("Net deposits %s: %.4f", base, *fig.netDeposits))
		absolute := fig.marginBalance - *fig.netDeposits
		if *fig.netDeposits > 0 && absolute != 0 {
			relative := math.Round(100/(*fig.netDeposits/absolute)*100) / 100
			lines = append(lines, fmt.Sprintf("Overall performance in %s: %+.4f (%+.2f%%)", base, absolute, relative))
		} else {
			lines = append(lines, fmt.Sprintf("Overall performance in %s: %+.4f (%% n/a)", base, absolute))
		}
	}
	balanceLabel := "Balance"
	if b.cfg.Exchange.IsMargin() {
		balanceLabel = "Margin balance"
	}
	lines = append(lines, withChange(
		fmt.Sprintf("%s %s: %.4f", balanceLabel, base, fig.today.MarginBalance), fig.today.MarginBalanceChange))
	fiatLabel := "Balance"
	if b.cfg.Exchange.IsMargin() {
		fiatLabel = "Position"
	}
	lines = append(lines, withChange(
		fmt.Sprintf("%s %s: %.0f", fiatLabel, quoteCur, fig.today.FiatMarginBalance), fig.today.FiatBalanceChange))
	lines = append(lines, b.valueChangeLine(fig), b.tradingResultLine(fig))
	lines = append(lines, withChange(
		fmt.Sprintf("%s price %s: %.0f", base, quoteCur, fig.price), fig.today.PriceChange))
	lines = append(lines, b.actualQuoteLine(fig))
	if fig.leveragePct != nil {
		line := fmt.Sprintf("Margin leverage: %.0f%%", *fig.leveragePct)
		if *fig.leveragePct >= b.cfg.Trading.MaxLeveragePct*0.98 {
			line += " (Max.)"
		}
		lines = append(lines, line)
	}
	if fig.targetPos != nil {
		lines = append(lines, fmt.Sprintf("Target position %s: %.0f", quoteCur, *fig.targetPos))
	}
	if fig.liquidation != nil {
		lines = append(lines, fmt.Sprintf("Liquidation price %s: %.0f", quoteCur, *fig.liquidation))
	}
	lines = append(lines, "* (change since yesterday noon)")
	return lines
}

func (b *Builder) valueChangeLine(fig *figures) string {
	if b.cfg.Exchange.IsMargin() {
		if fig.today.MarginBalanceChange != nil && fig.today.PriceChange != nil && fig.leveragePct != nil {
			change := *fig.today.MarginBalanceChange - *fig.today.PriceChange*(*fig.leveragePct)/100
			return fmt.Sprintf("Value change: %+.4f%%*", change)
		}
		return fmt.Sprintf("Value change: %s*", na)
	}
	y := fig.today.Yesterday
	if y == nil {
		return fmt.Sprintf("Value change: %s*", na)
	}
	yesterdayTotal := y.MarginBalance*y.Price + y.FiatMarginBalance
	todayTotal := fig.today.MarginBalance*fig.price + fig.today.FiatMarginBalance
	if yesterdayTotal <= 0 {
		return fmt.Sprintf("Value change: %s*", na)
	}
	return fmt.Sprintf("Value change: %+.2f%%*", (todayTotal/yesterdayTotal-1)*100)
}

func (b *Builder) tradingResultLine(fig *figures) string {
	quoteCur := b.cfg.Exchange.Quote()
	y := fig.today.Yesterday
	if y == nil {
		return fmt.Sprintf("Trading result in %s: %s*", quoteCur, na)
	}
	result := (fig.today.MarginBalance-y.MarginBalance)*fig.price + fig.today.FiatMarginBalance - y.FiatMarginBalance
	return fmt.Sprintf("Trading result in %s: %+.0f*", quoteCur, result)
}

func (b *Builder) actualQuoteLine(fig *figures) string {
	line := fmt.Sprintf("Actual quote: %.0f%%", fig.actualQuote)
	if fig.actualQuote >= b.cfg.Trading.MaxQuotePct*0.98 {
		line += "  (Max.)"
	}
	return line
}

func adviceLine(fig *figures) string {
	if fig.reading == nil {
		return fmt.Sprintf("Mayer multiple: %s (%s)", na, fig.advice)
	}
	switch fig.advice {
	case momentum.AdviceBuy:
		return fmt.Sprintf("Mayer multiple: %.2f (< %.2f = %s)", fig.reading.Current, fig.reading.Average, fig.advice)
	case momentum.AdviceSell:
		return fmt.Sprintf("Mayer multiple: %.2f (> %.2f = %s)", fig.reading.Current, momentum.SellThreshold(), fig.advice)
	}
	return fmt.Sprintf("Mayer multiple: %.2f (< %.2f = %s)", fig.reading.Current, momentum.SellThreshold(), fig.advice)
}

func (b *Builder) baseValueLines() []string {
	t := b.cfg.Trading
	return []string{
		fmt.Sprintf("Price %s: %v", b.cfg.Exchange.Quote(), t.StartCryptoPrice),
		fmt.Sprintf("Margin balance %s: %v", b.cfg.Exchange.Base(), math.Round(t.StartMarginBalance*10000)/10000),
		fmt.Sprintf("MM: %v", math.Round(t.StartMayerMultiple*10000)/10000),
		fmt.Sprintf("Start date: %s", t.StartDate),
	}
}

func (b *Builder) settingsLines() []string {
	t := b.cfg.Trading
	base := b.cfg.Exchange.Base()
	lines := []string{}
	if t.AutoQuote != quote.ModeMMRange {
		lines = append(lines, fmt.Sprintf("Quote %s in %%: %v", base, t.CryptoQuotePct))
	}
	lines = append(lines,
		fmt.Sprintf("Auto-quote: %s", t.AutoQuote),
		fmt.Sprintf("MM quote 0: %v", t.MMQuote0),
		fmt.Sprintf("MM quote 100: %v", t.MMQuote100),
		fmt.Sprintf("Max quote %s in %%: %v", base, t.MaxQuotePct),
		fmt.Sprintf("Max leverage in %%: %v", t.MaxLeveragePct),
		fmt.Sprintf("Tolerance in %%: %v", t.TolerancePct),
		fmt.Sprintf("Period in minutes: %v", t.PeriodMinutes),
		fmt.Sprintf("Trade trials: %d", t.TradeTrials),
		fmt.Sprintf("Order settle seconds: %d", t.OrderSettleSeconds),
		fmt.Sprintf("Trade advantage in %%: %v", t.TradeAdvantagePct),
		fmt.Sprintf("Stop buy: %s", yesNo(t.StopBuy)),
		fmt.Sprintf("Stop sell: %s", yesNo(t.StopSell)),
		fmt.Sprintf("Backtrade only on profit: %s", yesNo(t.BacktradeOnlyOnProfit)),
		fmt.Sprintf("Report: %s", b.cfg.Report.Cadence),
	)
	return lines
}

func (b *Builder) generalLines() []string {
	now := b.now().UTC().Truncate(time.Second)
	return []string{
		fmt.Sprintf("Generated: %s UTC", now.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("Bot: %s@%s", b.cfg.App.Instance, b.hostname),
		fmt.Sprintf("Version: %s", b.version),
		fmt.Sprintf("Running since: %s UTC", b.started.Format("2006-01-02 15:04:05")),
	}
}

func withChange(line string, change *float64) string {
	if change == nil {
		return line
	}
	return fmt.Sprintf("%s (%+.2f%%)*", line, *change)
}

func yesNo(v bool) string {
	if v {
		return "Y"
	}
	return "N"
}

func (b *Builder) csvRow(fig *figures, now time.Time) (labels, row []string) {
	base := b.cfg.Exchange.Base()
	quoteCur := b.cfg.Exchange.Quote()
	t := b.cfg.Trading
	add := func(label, value string) {
		labels = append(labels, label)
		row = append(row, value)
	}
	add("Bot", b.cfg.App.Instance)
	add("Datetime", now.Truncate(time.Second).Format("2006-01-02 15:04:05")+" UTC")
	if fig.netDeposits == nil {
		add("Deposit "+base, na)
		add("Overall Perf. "+base, na)
		add("Performance %", na)
	} else {
		add("Deposit "+base, fmt.Sprintf("%.4f", *fig.netDeposits))
		absolute := fig.marginBalance - *fig.netDeposits
		add("Overall Perf. "+base, fmt.Sprintf("%.4f", absolute))
		if *fig.netDeposits > 0 && absolute != 0 {
			add("Performance %", fmt.Sprintf("%+.2f", math.Round(100/(*fig.netDeposits/absolute)*100)/100))
		} else {
			add("Performance %", na)
		}
	}
	add("Balance "+base, fmt.Sprintf("%.4f", fig.today.MarginBalance))
	add("Change %", changeCSV(fig.today.MarginBalanceChange))
	add("Balance "+quoteCur, fmt.Sprintf("%.0f", fig.today.FiatMarginBalance))
	add("Change %", changeCSV(fig.today.FiatBalanceChange))
	add(base+" Price "+quoteCur, fmt.Sprintf("%.0f", fig.price))
	add("Change %", changeCSV(fig.today.PriceChange))
	add("Actual Quote %", fmt.Sprintf("%.0f", fig.actualQuote))
	if fig.leveragePct != nil {
		add("Leverage %", fmt.Sprintf("%.0f", *fig.leveragePct))
	} else {
		add("Leverage %", na)
	}
	if fig.reading != nil {
		add("Mayer", fmt.Sprintf("%.2f", fig.reading.Current))
	} else {
		add("Mayer", na)
	}
	if t.AutoQuote == quote.ModeMMRange {
		add("Quote "+base, na)
	} else {
		add("Quote "+base, strconv.FormatFloat(t.CryptoQuotePct, 'f', -1, 64))
	}
	add("Auto-Quote", t.AutoQuote)
	add("MM Q0", strconv.FormatFloat(t.MMQuote0, 'f', -1, 64))
	add("MM Q100", strconv.FormatFloat(t.MMQuote100, 'f', -1, 64))
	add("Max Quote", strconv.FormatFloat(t.MaxQuotePct, 'f', -1, 64))
	add("Max Leverage", strconv.FormatFloat(t.MaxLeveragePct, 'f', -1, 64))
	add("Tol. %", strconv.FormatFloat(t.TolerancePct, 'f', -1, 64))
	add("Period Min.", strconv.FormatFloat(t.PeriodMinutes, 'f', -1, 64))
	add("Trade Trials", strconv.Itoa(t.TradeTrials))
	add("Settle Sec.", strconv.Itoa(t.OrderSettleSeconds))
	add("Trade Adv. %", strconv.FormatFloat(t.TradeAdvantagePct, 'f', -1, 64))
	add("Stop Buy", yesNo(t.StopBuy))
	add("Stop Sell", yesNo(t.StopSell))
	add("Backtrade Only Profit", yesNo(t.BacktradeOnlyOnProfit))
	add("Report", b.cfg.Report.Cadence)
	add("Info", b.cfg.Report.Info)
	return labels, row
}

func changeCSV(change *float64) string {
	if change == nil {
		return na
	}
	return fmt.Sprintf("%+.2f", *change)
}
