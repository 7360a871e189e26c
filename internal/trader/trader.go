package trader

import (
	"context"
	"strings"
	"time"

	"balancer/internal/config"
	"balancer/internal/engine"
	"balancer/internal/gateway/exchange"
	"balancer/internal/logger"
	"balancer/internal/resilience"
)

// Trader turns a pending action into at most one filled order. It owns the
// trial loop: limit order at an advantaged price, settle wait, cancel on
// non-fill, retry at the then-current price, and finally a single market
// order once the trials are exhausted.
type Trader struct {
	cfg     *config.TradingConfig
	pair    string
	gateway exchange.Gateway
	guard   *resilience.Guard
	engine  *engine.Engine
	sleep   func(ctx context.Context, d time.Duration)
}

func New(cfg *config.TradingConfig, pair string, gateway exchange.Gateway, guard *resilience.Guard, eng *engine.Engine) *Trader {
	return &Trader{
		cfg:     cfg,
		pair:    pair,
		gateway: gateway,
		guard:   guard,
		engine:  eng,
		sleep:   resilience.Sleep,
	}
}

// Execute runs the trial sequence for the given action. A nil order with a
// nil error means the action was dropped for this cycle (size below minimum,
// rejected submission or the anti-backtrade guard); only log events remain.
func (t *Trader) Execute(ctx context.Context, action *engine.Action, totalInCrypto float64, last *exchange.Order) (*exchange.Order, error) {
	for attempt := 1; attempt <= t.cfg.TradeTrials; attempt++ {
		order, retry, err := t.trial(ctx, action, totalInCrypto, last)
		if err != nil || order != nil {
			return order, err
		}
		if !retry {
			return nil, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return t.marketFallback(ctx, action, totalInCrypto)
}

// ExecuteAtMarket skips the limit trials and goes straight to the market
// order, used when opening the initial margin position.
func (t *Trader) ExecuteAtMarket(ctx context.Context, action *engine.Action, totalInCrypto float64) (*exchange.Order, error) {
	return t.marketFallback(ctx, action, totalInCrypto)
}

// trial runs one limit order attempt. retry is true only when the order was
// placed and canceled unfilled.
func (t *Trader) trial(ctx context.Context, action *engine.Action, totalInCrypto float64, last *exchange.Order) (order *exchange.Order, retry bool, err error) {
	market, err := t.currentPrice(ctx)
	if err != nil {
		return nil, false, err
	}
	var limit float64
	if action.Direction == exchange.Buy {
		limit = buyPrice(market, t.cfg.TradeAdvantagePct)
	} else {
		limit = sellPrice(market, t.cfg.TradeAdvantagePct)
	}
	if t.engine.Suppressed(last, action.Direction, limit) {
		return nil, false, nil
	}
	size := t.sizeFor(action, totalInCrypto, limit)
	if size == 0 {
		logger.Infof("Order size below minimum for %s", action.Direction)
		return nil, false, nil
	}
	placed, err := t.placeLimit(ctx, size, limit, action.Direction)
	if err != nil {
		if resilience.IsStop(err) {
			logger.Warnf("Could not create %s order over %v: %v", action.Direction, size, err)
			return nil, false, nil
		}
		return nil, false, err
	}
	t.sleep(ctx, t.cfg.SettleWait())
	status, err := t.orderStatus(ctx, placed.ID)
	if err != nil {
		return nil, false, err
	}
	if exchange.IsOpenStatus(status) {
		filled, err := t.Cancel(ctx, placed)
		if err != nil {
			return nil, false, err
		}
		if filled != nil {
			return filled, false, nil
		}
		return nil, true, nil
	}
	return placed, false, nil
}

func (t *Trader) marketFallback(ctx context.Context, action *engine.Action, totalInCrypto float64) (*exchange.Order, error) {
	market, err := t.currentPrice(ctx)
	if err != nil {
		return nil, err
	}
	size := t.sizeFor(action, totalInCrypto, market)
	if size == 0 {
		return nil, nil
	}
	var order *exchange.Order
	err = t.guard.Do(ctx, "PlaceMarketOrder", func() error {
		var err error
		order, err = t.gateway.PlaceMarketOrder(ctx, t.pair, size, action.Direction)
		return err
	})
	if err != nil {
		if resilience.IsStop(err) {
			logger.Warnf("Could not create market %s order over %v: %v", action.Direction, size, err)
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

// sizeFor returns the order size for the given price: base currency for
// percentage actions, quote notional for margin amount actions. Zero means
// below minimum.
func (t *Trader) sizeFor(action *engine.Action, totalInCrypto, price float64) float64 {
	if action.Amount > 0 {
		return action.Amount
	}
	if action.Direction == exchange.Buy {
		return buyOrderSize(totalInCrypto, action.Percentage, action.Price, price)
	}
	return sellOrderSize(totalInCrypto, action.Percentage, action.Price, price)
}

// Cancel cancels an order that did not fill in time. The cancel can race
// with a fill: if the status query already reports the order as executed, or
// the exchange claims not to know the order anymore while hinting at a fill,
// the order is returned as filled instead.
func (t *Trader) Cancel(ctx context.Context, order *exchange.Order) (*exchange.Order, error) {
	if order == nil {
		return nil, nil
	}
	var filled *exchange.Order
	err := t.guard.Do(ctx, "CancelOrder", func() error {
		status, err := t.gateway.OrderStatus(ctx, t.pair, order.ID)
		if err != nil {
			return err
		}
		if exchange.IsFilledStatus(status) {
			filled = order
			return nil
		}
		if !exchange.IsOpenStatus(status) {
			logger.Warnf("Order to be canceled %s was in state %s", order, status)
			return nil
		}
		if err := t.gateway.CancelOrder(ctx, t.pair, order.ID); err != nil {
			if gone, wasFilled := orderGone(err); gone {
				if wasFilled {
					filled = order
					return nil
				}
				logger.Errorf("Order to be canceled not found %s %v", order, err)
				return nil
			}
			return err
		}
		logger.Infof("Canceled %s", order)
		return nil
	})
	if err != nil {
		if resilience.IsStop(err) {
			return nil, nil
		}
		return nil, err
	}
	return filled, nil
}

// CancelAllOpen clears leftover working orders, typically at startup.
func (t *Trader) CancelAllOpen(ctx context.Context) error {
	var orders []exchange.Order
	err := t.guard.Do(ctx, "OpenOrders", func() error {
		var err error
		orders, err = t.gateway.OpenOrders(ctx, t.pair)
		return err
	})
	if err != nil {
		return err
	}
	for i := range orders {
		if _, err := t.Cancel(ctx, &orders[i]); err != nil {
			return err
		}
	}
	return nil
}

// LastClosedOrder loads the most recent executed order, used to seed the
// anti-backtrade guard after a restart.
func (t *Trader) LastClosedOrder(ctx context.Context) (*exchange.Order, error) {
	var orders []exchange.Order
	err := t.guard.Do(ctx, "ClosedOrders", func() error {
		var err error
		orders, err = t.gateway.ClosedOrders(ctx, t.pair, 10)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	last := orders[len(orders)-1]
	logger.Infof("Last %s", last)
	return &last, nil
}

func (t *Trader) currentPrice(ctx context.Context) (float64, error) {
	var price float64
	err := t.guard.Do(ctx, "Ticker", func() error {
		var err error
		price, err = t.gateway.Ticker(ctx, t.pair)
		return err
	})
	return price, err
}

func (t *Trader) placeLimit(ctx context.Context, size, price float64, side exchange.Side) (*exchange.Order, error) {
	var order *exchange.Order
	err := t.guard.Do(ctx, "PlaceLimitOrder", func() error {
		var err error
		order, err = t.gateway.PlaceLimitOrder(ctx, t.pair, size, price, side)
		return err
	})
	return order, err
}

func (t *Trader) orderStatus(ctx context.Context, id string) (string, error) {
	var status string
	err := t.guard.Do(ctx, "OrderStatus", func() error {
		var err error
		status, err = t.gateway.OrderStatus(ctx, t.pair, id)
		return err
	})
	return status, err
}

// orderGone reports whether the error means the exchange no longer knows the
// order, and whether its message hints that the order was in fact executed.
func orderGone(err error) (gone, wasFilled bool) {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "filled") || strings.Contains(msg, "cancelorder") {
		return true, true
	}
	for _, marker := range []string{"not found", "does not exist", "unknown order"} {
		if strings.Contains(msg, marker) {
			return true, false
		}
	}
	return false, false
}
