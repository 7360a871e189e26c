// Package account reads the figures a cycle and a report need from the
// exchange: prices, balances, position data and transfer history. All calls
// go through the resilience guard.
package account

import (
	"context"
	"errors"
	"math"
	"time"

	"balancer/internal/config"
	"balancer/internal/engine"
	"balancer/internal/gateway/exchange"
	"balancer/internal/logger"
	"balancer/internal/resilience"
)

type Account struct {
	cfg     *config.Config
	gateway exchange.Gateway
	guard   *resilience.Guard
	sleep   func(ctx context.Context, d time.Duration)
}

func New(cfg *config.Config, gateway exchange.Gateway, guard *resilience.Guard) *Account {
	return &Account{cfg: cfg, gateway: gateway, guard: guard, sleep: resilience.Sleep}
}

func (a *Account) Gateway() exchange.Gateway { return a.gateway }

// margin returns the gateway's margin capability set, nil for spot.
func (a *Account) margin() exchange.MarginGateway {
	mg, ok := a.gateway.(exchange.MarginGateway)
	if !ok {
		return nil
	}
	return mg
}

// Price returns the current bid price, retrying indefinitely.
func (a *Account) Price(ctx context.Context) (float64, error) {
	var price float64
	err := a.guard.Do(ctx, "Ticker", func() error {
		var err error
		price, err = a.gateway.Ticker(ctx, a.cfg.Exchange.Pair)
		return err
	})
	return price, err
}

// PriceLimited bounds the retries and returns a zero sentinel when they are
// exhausted, so a report can degrade instead of blocking.
func (a *Account) PriceLimited(ctx context.Context, attempts int) (float64, error) {
	var price float64
	err := a.guard.DoLimited(ctx, "Ticker", attempts, func() error {
		var err error
		price, err = a.gateway.Ticker(ctx, a.cfg.Exchange.Pair)
		return err
	})
	if errors.Is(err, resilience.ErrExhausted) {
		return 0, nil
	}
	return price, err
}

func (a *Account) balance(ctx context.Context, currency string) (exchange.Balance, error) {
	var bal exchange.Balance
	err := a.guard.Do(ctx, "GetBalance", func() error {
		var err error
		bal, err = a.gateway.GetBalance(ctx, currency)
		return err
	})
	return bal, err
}

// CryptoBalance returns the base currency balance.
func (a *Account) CryptoBalance(ctx context.Context) (exchange.Balance, error) {
	return a.balance(ctx, a.cfg.Exchange.Base())
}

// FiatBalance returns the quote currency balance.
func (a *Account) FiatBalance(ctx context.Context) (exchange.Balance, error) {
	return a.balance(ctx, a.cfg.Exchange.Quote())
}

// Position returns the margin position, nil for spot gateways.
func (a *Account) Position(ctx context.Context) (*exchange.Position, error) {
	mg := a.margin()
	if mg == nil {
		return nil, nil
	}
	var pos *exchange.Position
	err := a.guard.Do(ctx, "PositionInfo", func() error {
		var err error
		pos, err = mg.PositionInfo(ctx)
		return err
	})
	return pos, err
}

// Leverage returns the current account leverage as a fraction. ok is false
// for spot gateways.
func (a *Account) Leverage(ctx context.Context) (leverage float64, ok bool, err error) {
	mg := a.margin()
	if mg == nil {
		return 0, false, nil
	}
	err = a.guard.Do(ctx, "MarginLeverage", func() error {
		var err error
		leverage, err = mg.MarginLeverage(ctx)
		return err
	})
	return leverage, err == nil, err
}

// Snapshot computes the cycle's balance snapshot. For the margin family an
// accidental short position is closed at market first, the balance figures
// then derive from the reopened position.
func (a *Account) Snapshot(ctx context.Context) (engine.Snapshot, error) {
	if a.margin() != nil {
		return a.marginSnapshot(ctx)
	}
	var snap engine.Snapshot
	crypto, err := a.CryptoBalance(ctx)
	if err != nil {
		return snap, err
	}
	a.sleep(ctx, resilience.Jitter(3*time.Second, 5*time.Second))
	fiat, err := a.FiatBalance(ctx)
	if err != nil {
		return snap, err
	}
	price, err := a.Price(ctx)
	if err != nil {
		return snap, err
	}
	snap.CryptoBalance = crypto.Total
	snap.Price = price
	snap.TotalInCrypto = crypto.Total + fiat.Total/price
	return snap, nil
}

func (a *Account) marginSnapshot(ctx context.Context) (engine.Snapshot, error) {
	var snap engine.Snapshot
	pos, err := a.Position(ctx)
	if err != nil {
		return snap, err
	}
	if pos != nil && pos.HomeNotional < 0 {
		logger.Warnf("Position short by %f", math.Abs(pos.HomeNotional))
		if err := a.closeShort(ctx, math.Abs(pos.HomeNotional)); err != nil {
			return snap, err
		}
		a.sleep(ctx, resilience.Jitter(2*time.Second, 4*time.Second))
		if pos, err = a.Position(ctx); err != nil {
			return snap, err
		}
	}
	crypto, err := a.CryptoBalance(ctx)
	if err != nil {
		return snap, err
	}
	snap.TotalInCrypto = crypto.Total
	if pos != nil && pos.MarkPrice > 0 {
		snap.Price = pos.MarkPrice
	}
	if snap.Price == 0 {
		if snap.Price, err = a.Price(ctx); err != nil {
			return snap, err
		}
	}
	if pos != nil && pos.AvgEntryPrice > 0 {
		snap.CryptoBalance = math.Abs(pos.ForeignNotional) / pos.AvgEntryPrice * snap.Price / pos.AvgEntryPrice
	}
	return snap, nil
}

func (a *Account) closeShort(ctx context.Context, amount float64) error {
	err := a.guard.Do(ctx, "PlaceMarketOrder", func() error {
		_, err := a.gateway.PlaceMarketOrder(ctx, a.cfg.Exchange.Pair, amount, exchange.Buy)
		return err
	})
	if resilience.IsStop(err) {
		logger.Warnf("Could not close short position: %v", err)
		return nil
	}
	return err
}

// MarginBalance returns the account value in base currency.
func (a *Account) MarginBalance(ctx context.Context) (float64, error) {
	crypto, err := a.CryptoBalance(ctx)
	if err != nil {
		return 0, err
	}
	if a.margin() != nil {
		return crypto.Total, nil
	}
	fiat, err := a.FiatBalance(ctx)
	if err != nil {
		return 0, err
	}
	price, err := a.Price(ctx)
	if err != nil {
		return 0, err
	}
	return crypto.Total + fiat.Total/price, nil
}

// FiatMarginBalance returns the position value in quote currency, margin
// family only.
func (a *Account) FiatMarginBalance(ctx context.Context) (float64, error) {
	pos, err := a.Position(ctx)
	if err != nil {
		return 0, err
	}
	if pos == nil || pos.MarkPrice == 0 {
		return 0, nil
	}
	return pos.HomeNotional * pos.MarkPrice, nil
}

// NetDeposits computes deposits minus withdrawals in base currency. The
// configured override wins unless fromExchange forces a fresh computation.
func (a *Account) NetDeposits(ctx context.Context, fromExchange bool) (float64, error) {
	if !fromExchange && a.cfg.Trading.NetDepositsBase != 0 {
		return a.cfg.Trading.NetDepositsBase, nil
	}
	currency := a.cfg.Exchange.Base()
	var deposits, withdrawals []exchange.Transfer
	err := a.guard.Do(ctx, "Deposits", func() error {
		var err error
		deposits, err = a.gateway.Deposits(ctx, currency)
		return err
	})
	if err != nil {
		return 0, err
	}
	err = a.guard.Do(ctx, "Withdrawals", func() error {
		var err error
		withdrawals, err = a.gateway.Withdrawals(ctx, currency)
		return err
	})
	if err != nil {
		return 0, err
	}
	var in, out float64
	for _, d := range deposits {
		in += d.Amount
	}
	for _, w := range withdrawals {
		out += w.Amount
	}
	if in > out {
		return in - out, nil
	}
	return 0, nil
}
