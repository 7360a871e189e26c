package app

import (
	"context"
	"errors"
	"math"
	"time"

	"balancer/internal/account"
	"balancer/internal/config"
	"balancer/internal/engine"
	"balancer/internal/gateway/exchange"
	"balancer/internal/gateway/notifier"
	"balancer/internal/logger"
	"balancer/internal/momentum"
	"balancer/internal/quote"
	"balancer/internal/report"
	"balancer/internal/resilience"
	"balancer/internal/trader"
)

const startDateLayout = "2006-01-02"

// Bot runs the decision cycle: read balances, compute the target quote,
// derive at most one action, execute it, report, sleep. Strictly single
// threaded; every figure is recomputed from the gateway each cycle.
type Bot struct {
	cfg        *config.Config
	opts       Options
	gateway    exchange.Gateway
	account    *account.Account
	guard      *resilience.Guard
	engine     *engine.Engine
	calc       *quote.Calculator
	trader     *trader.Trader
	source     *momentum.Combined
	report     *report.Builder
	notify     notifier.TextNotifier
	deactivate *deactivator

	// lastOrder seeds the anti-backtrade guard, nil when the guard is off.
	lastOrder *exchange.Order
	// initializing is true while the margin start position has not been
	// opened yet; the first trade then goes straight to market.
	initializing bool
	sleep        func(ctx context.Context, d time.Duration)
}

// Run executes the bot until ctx is canceled. In report-only mode a single
// report is sent and Run returns; in simulate mode one cycle is evaluated
// and the pending action printed without trading.
func (b *Bot) Run(ctx context.Context) error {
	if b.sleep == nil {
		b.sleep = resilience.Sleep
	}
	if b.opts.ReportOnly {
		return b.report.Daily(ctx, true)
	}
	if err := b.startup(ctx); err != nil {
		return err
	}
	for {
		if err := b.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Errorf("Cycle failed: %v", err)
		}
		if b.opts.Simulate {
			return nil
		}
		b.sleep(ctx, b.cfg.Trading.Period())
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (b *Bot) startup(ctx context.Context) error {
	logger.Infof("Starting RB %s %s", b.cfg.App.Instance, Version)
	if !b.opts.Simulate {
		pid, err := WritePID(b.cfg.App.DataDir, b.cfg.App.Instance)
		if err != nil {
			return err
		}
		b.deactivate.pid = pid
	}
	if b.cfg.Exchange.IsMargin() {
		if err := b.prepareMargin(ctx); err != nil {
			return err
		}
	}
	if !b.cfg.Trading.KeepOrders {
		if err := b.trader.CancelAllOpen(ctx); err != nil {
			return err
		}
	}
	if !b.initializing && b.cfg.Trading.BacktradeOnlyOnProfit {
		last, err := b.trader.LastClosedOrder(ctx)
		if err != nil {
			return err
		}
		b.lastOrder = last
	}
	return nil
}

// prepareMargin switches the account to cross margin and, on a fresh
// instance, records the start values the position math is anchored to.
// The anchor price is only provisional until the opening order fills.
func (b *Bot) prepareMargin(ctx context.Context) error {
	mg := b.gateway.(exchange.MarginGateway)
	if err := b.guard.DoLeverage(ctx, func() error {
		return mg.SetLeverage(ctx, 0)
	}); err != nil {
		return err
	}
	if b.cfg.Trading.StartDate != "" {
		return nil
	}
	if b.cfg.Trading.StartMarginBalance == 0 {
		if err := b.initStartValues(ctx); err != nil {
			return err
		}
	}
	b.initializing = true
	return nil
}

func (b *Bot) initStartValues(ctx context.Context) error {
	price, err := b.account.Price(ctx)
	if err != nil {
		return err
	}
	balance, err := b.account.MarginBalance(ctx)
	if err != nil {
		return err
	}
	reading, err := b.source.Read(ctx)
	if err != nil {
		return err
	}
	netDeposits, err := b.account.NetDeposits(ctx, true)
	if err != nil {
		return err
	}
	b.cfg.Trading.StartCryptoPrice = math.Round(price)
	b.cfg.Trading.StartMarginBalance = balance
	b.cfg.Trading.StartMayerMultiple = reading.Current
	b.cfg.Trading.ReferenceNetDeposits = netDeposits
	logger.Infof("Start values: price %.0f, balance %.8f, mayer %.2f",
		b.cfg.Trading.StartCryptoPrice, balance, reading.Current)
	return saveStartValues(b.cfg)
}

func (b *Bot) cycle(ctx context.Context) error {
	var (
		action        *engine.Action
		totalInCrypto float64
		err           error
	)
	if b.cfg.Exchange.IsMargin() {
		action, err = b.evaluateMargin(ctx)
	} else {
		action, totalInCrypto, err = b.evaluateSpot(ctx)
	}
	if err != nil {
		if errors.Is(err, momentum.ErrUnavailable) {
			logger.Warnf("Momentum source unavailable, skipping cycle")
			return nil
		}
		return err
	}
	if b.opts.Simulate {
		if action == nil {
			logger.InfoBlock("No action pending")
		} else {
			logger.InfoBlock("Would execute " + action.String())
		}
		return nil
	}
	if action != nil {
		if err := b.execute(ctx, action, totalInCrypto); err != nil {
			return err
		}
	}
	return b.report.Daily(ctx, false)
}

func (b *Bot) evaluateSpot(ctx context.Context) (*engine.Action, float64, error) {
	snap, err := b.account.Snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}
	actual := snap.ActualQuote()
	logger.Infof("Total %.8f %s, quote %.2f%% @ %.2f",
		snap.TotalInCrypto, b.cfg.Exchange.Base(), actual, snap.Price)
	target, err := b.calc.Target(ctx)
	if err != nil {
		return nil, 0, err
	}
	return b.engine.Decide(actual, target, snap.Price), snap.TotalInCrypto, nil
}

func (b *Bot) evaluateMargin(ctx context.Context) (*engine.Action, error) {
	if err := b.checkDeposits(ctx); err != nil {
		return nil, err
	}
	price, err := b.account.Price(ctx)
	if err != nil {
		return nil, err
	}
	target, err := b.calc.Target(ctx)
	if err != nil {
		return nil, err
	}
	pos, err := b.account.Position(ctx)
	if err != nil {
		return nil, err
	}
	var position float64
	if pos != nil {
		position = pos.CurrentQty
	}
	logger.Infof("Position %.0f, quote %.2f%% @ %.2f",
		position, b.engine.ActualQuoteMargin(position, price), price)
	return b.engine.DecideMargin(position, target, price, func() (float64, error) {
		lev, _, err := b.account.Leverage(ctx)
		return lev, err
	})
}

func (b *Bot) execute(ctx context.Context, action *engine.Action, totalInCrypto float64) error {
	if b.engine.Suppressed(b.lastOrder, action.Direction, action.Price) {
		return nil
	}
	logger.Infof("Pending %s", action)
	var (
		order *exchange.Order
		err   error
	)
	if b.initializing {
		order, err = b.trader.ExecuteAtMarket(ctx, action, totalInCrypto)
	} else {
		order, err = b.trader.Execute(ctx, action, totalInCrypto, b.lastOrder)
	}
	if err != nil || order == nil {
		return err
	}
	logger.Infof("Filled %s", order)
	if b.initializing {
		if err := b.finishStartValues(ctx); err != nil {
			return err
		}
	}
	if b.cfg.Trading.BacktradeOnlyOnProfit {
		b.lastOrder = order
	}
	return b.report.Trade(ctx, order)
}

// finishStartValues replaces the provisional anchor price with the actual
// entry price of the opening fill and stamps the start date.
func (b *Bot) finishStartValues(ctx context.Context) error {
	pos, err := b.account.Position(ctx)
	if err != nil {
		return err
	}
	if pos != nil && pos.AvgEntryPrice > 0 {
		b.cfg.Trading.StartCryptoPrice = pos.AvgEntryPrice
	}
	b.cfg.Trading.StartDate = time.Now().UTC().Format(startDateLayout)
	b.initializing = false
	logger.Infof("Position opened, start price %.2f", b.cfg.Trading.StartCryptoPrice)
	return saveStartValues(b.cfg)
}

// checkDeposits reconciles transfers made while the bot is running. A net
// deposit or withdrawal shifts the recorded start balance so the position
// math keeps measuring trading performance, not funding.
func (b *Bot) checkDeposits(ctx context.Context) error {
	netDeposits, err := b.account.NetDeposits(ctx, true)
	if err != nil {
		return err
	}
	if b.cfg.Trading.ReferenceNetDeposits == 0 {
		b.cfg.Trading.ReferenceNetDeposits = netDeposits
		return saveStartValues(b.cfg)
	}
	diff := netDeposits - b.cfg.Trading.ReferenceNetDeposits
	if diff == 0 {
		return nil
	}
	logger.Infof("Net deposits changed by %.8f, adjusting start values", diff)
	b.cfg.Trading.StartMarginBalance += diff
	if b.cfg.Trading.NetDepositsBase != 0 {
		b.cfg.Trading.NetDepositsBase += diff
	}
	b.cfg.Trading.ReferenceNetDeposits = netDeposits
	return saveStartValues(b.cfg)
}
