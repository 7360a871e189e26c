package engine

import (
	"balancer/internal/gateway/exchange"
	"balancer/internal/logger"

	"github.com/shopspring/decimal"
)

// Suppressed applies the anti-backtrade guard: with the guard enabled, a new
// trade must be on the opposite side of the last fill and at a price better
// for the position by more than the tolerance. A buy must undercut the last
// fill, a sell must exceed it. Market fills carry no price and never
// suppress.
func (e *Engine) Suppressed(last *exchange.Order, side exchange.Side, price float64) bool {
	if !e.cfg.BacktradeOnlyOnProfit {
		return false
	}
	if last == nil || last.Price == 0 {
		return false
	}
	if last.Side == side {
		logger.Infof("Not trading, last filled order was already a %s", side)
		return true
	}
	lastPrice := decimal.NewFromFloat(last.Price)
	newPrice := decimal.NewFromFloat(price)
	tolerance := decimal.NewFromFloat(e.cfg.TolerancePct).Div(decimal.NewFromInt(100))
	one := decimal.NewFromInt(1)
	if side == exchange.Buy {
		if newPrice.GreaterThanOrEqual(lastPrice) {
			logger.Infof("Not buying @ %s (nonprofit)", newPrice)
			return true
		}
		if lastPrice.Mul(one.Sub(tolerance)).LessThan(newPrice) {
			logger.Infof("Not buying @ %s (tolerance)", newPrice)
			return true
		}
		return false
	}
	if newPrice.LessThanOrEqual(lastPrice) {
		logger.Infof("Not selling @ %s (nonprofit)", newPrice)
		return true
	}
	if lastPrice.Mul(one.Add(tolerance)).GreaterThan(newPrice) {
		logger.Infof("Not selling @ %s (tolerance)", newPrice)
		return true
	}
	return false
}
