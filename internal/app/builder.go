package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"balancer/internal/account"
	"balancer/internal/config"
	"balancer/internal/engine"
	"balancer/internal/gateway/binance"
	"balancer/internal/gateway/exchange"
	"balancer/internal/gateway/notifier"
	"balancer/internal/logger"
	"balancer/internal/momentum"
	"balancer/internal/quote"
	"balancer/internal/report"
	"balancer/internal/resilience"
	"balancer/internal/stats"
	"balancer/internal/trader"
)

// Options are the command line switches of a run.
type Options struct {
	// Simulate evaluates one cycle, prints the pending action and exits
	// without trading or writing the pid file.
	Simulate bool
	// ReportOnly sends the daily report immediately and exits.
	ReportOnly bool
	// KeepOrders skips the startup cancellation of leftover open orders.
	KeepOrders bool
}

type AppBuilder struct {
	cfg  *config.Config
	opts Options

	gatewayFn func(config.ExchangeConfig) (exchange.Gateway, error)
}

func NewAppBuilder(cfg *config.Config, opts Options) *AppBuilder {
	return &AppBuilder{cfg: cfg, opts: opts, gatewayFn: buildGateway}
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)
	applyStartValues(cfg)
	if b.opts.KeepOrders {
		cfg.Trading.KeepOrders = true
	}

	gateway, err := b.gatewayFn(cfg.Exchange)
	if err != nil {
		return nil, err
	}

	var textNotifier notifier.TextNotifier = notifier.Stdout{}
	if cfg.Notify.Telegram.Enabled {
		textNotifier = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
	}
	deact := &deactivator{instance: cfg.App.Instance, notify: textNotifier}
	guard := resilience.NewGuard(deact.Deactivate)

	acc := account.New(cfg, gateway, guard)
	eng := engine.New(&cfg.Trading)

	average := momentum.NewAverageFile(cfg.Momentum.AverageFile)
	remote := momentum.NewHTTPSource(cfg.Momentum.URL, time.Duration(cfg.Momentum.TimeoutSeconds)*time.Second)
	source := momentum.NewCombined(remote, func(ctx context.Context) (float64, error) {
		return acc.PriceLimited(ctx, 3)
	}, average)
	calc := quote.NewCalculator(&cfg.Trading, cfg.Exchange.IsMargin(), source)

	statsStore, err := stats.NewStore(cfg.App.StatsDB, cfg.App.Instance)
	if err != nil {
		return nil, err
	}
	tracker, err := stats.NewTracker(statsStore, cfg.Report.CutoffUTC)
	if err != nil {
		return nil, err
	}

	trd := trader.New(&cfg.Trading, cfg.Exchange.Pair, gateway, guard, eng)
	rep, err := report.NewBuilder(cfg, acc, eng, calc, tracker, source, textNotifier, Version)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		cfg:        cfg,
		opts:       b.opts,
		gateway:    gateway,
		account:    acc,
		guard:      guard,
		engine:     eng,
		calc:       calc,
		trader:     trd,
		source:     source,
		report:     rep,
		notify:     textNotifier,
		deactivate: deact,
	}
	return &App{cfg: cfg, bot: bot, average: average}, nil
}

func buildGateway(cfg config.ExchangeConfig) (exchange.Gateway, error) {
	switch cfg.Name {
	case "binance":
		return binance.NewSpot(cfg.APIKey, cfg.APISecret, cfg.Test), nil
	case "binance-futures":
		symbol := cfg.Symbol
		if symbol == "" {
			symbol = cfg.Pair
		}
		return binance.NewFutures(cfg.APIKey, cfg.APISecret, symbol, cfg.Test), nil
	}
	return nil, fmt.Errorf("unsupported exchange %q", cfg.Name)
}

// deactivator is the account-fatal exit path: drop the liveness file, send
// the one mandatory notification and terminate the process.
type deactivator struct {
	instance string
	notify   notifier.TextNotifier
	pid      *PIDFile
}

func (d *deactivator) Deactivate(reason string) {
	if d.pid != nil {
		d.pid.Remove()
	}
	text := fmt.Sprintf("Deactivated RB %s", d.instance)
	logger.Errorf("%s: %s", text, reason)
	if err := d.notify.SendText(text + "\n" + reason); err != nil {
		logger.Errorf("Cannot send deactivation notice: %v", err)
	}
	os.Exit(1)
}
