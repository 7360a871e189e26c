// Package engine holds the rebalance decision logic. Everything here is a
// pure function of the cycle's inputs; gateway access stays with the caller.
package engine

import (
	"fmt"
	"math"

	"balancer/internal/config"
	"balancer/internal/gateway/exchange"
	"balancer/internal/logger"
	"balancer/internal/quote"
)

// Snapshot carries the balance figures a cycle decides on. Recomputed from
// the gateway every cycle, never cached across cycles.
type Snapshot struct {
	CryptoBalance float64
	TotalInCrypto float64
	Price         float64
}

// ActualQuote returns the share of the portfolio held in crypto, in percent.
func (s Snapshot) ActualQuote() float64 {
	if s.CryptoBalance <= 0 || s.TotalInCrypto <= 0 {
		return 0
	}
	return s.CryptoBalance / s.TotalInCrypto * 100
}

// Action is the one pending trade of a cycle. Exactly one of Percentage
// (spot) and Amount (margin, quote notional) is set. Consumed and discarded
// within the cycle, never persisted.
type Action struct {
	Direction  exchange.Side
	Percentage float64
	Amount     float64
	Price      float64
}

func (a Action) String() string {
	if a.Amount > 0 {
		return fmt.Sprintf("%s %.0f @ %.2f", a.Direction, a.Amount, a.Price)
	}
	return fmt.Sprintf("%s %.2f%% @ %.2f", a.Direction, a.Percentage, a.Price)
}

// Engine evaluates one cycle. The trading config is shared by pointer: the
// margin start values can be rewritten at runtime by the deposit
// reconciliation, and the single-threaded cycle makes that safe.
type Engine struct {
	cfg *config.TradingConfig
}

func New(cfg *config.TradingConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Decide compares the actual allocation with the target and emits at most
// one action. Inside the tolerance band it returns nil, the steady state.
// A buy is additionally blocked once the actual allocation has reached the
// configured ceiling, except in mode OFF where no ceiling applies.
func (e *Engine) Decide(actual, target, price float64) *Action {
	if !e.cfg.StopBuy && actual < target-e.cfg.TolerancePct &&
		(actual < e.cfg.MaxQuotePct || e.cfg.AutoQuote == quote.ModeOff) {
		return &Action{Direction: exchange.Buy, Percentage: target - actual, Price: price}
	}
	if !e.cfg.StopSell && actual > target+e.cfg.TolerancePct {
		return &Action{Direction: exchange.Sell, Percentage: actual - target, Price: price}
	}
	return nil
}

// DecideMargin operates on absolute position size instead of percentages.
// The tolerance band scales with the position. leverage is queried lazily,
// only when a buy is about to be emitted.
func (e *Engine) DecideMargin(actualPosition, targetQuote, price float64, leverage func() (float64, error)) (*Action, error) {
	target := e.TargetPosition(targetQuote, price)
	if !e.cfg.StopBuy && target > actualPosition*(1+e.cfg.TolerancePct/100) {
		lev, err := leverage()
		if err != nil {
			return nil, err
		}
		lev *= 100
		logger.Infof("Leverage is %.2f", lev)
		if lev >= e.cfg.MaxLeveragePct {
			logger.Infof("Leverage limited by configuration to %.2f", e.cfg.MaxLeveragePct)
			return nil, nil
		}
		return &Action{Direction: exchange.Buy, Amount: math.Round(target - actualPosition), Price: price}, nil
	}
	if !e.cfg.StopSell && target < actualPosition*(1-e.cfg.TolerancePct/100) {
		return &Action{Direction: exchange.Sell, Amount: math.Round(actualPosition - target), Price: price}, nil
	}
	return nil, nil
}

// TargetPosition converts a target quote percentage into a contract
// position, anchored to the balance and price recorded at position
// initiation.
func (e *Engine) TargetPosition(targetQuote, price float64) float64 {
	return e.cfg.StartMarginBalance * e.cfg.StartCryptoPrice * targetQuote / 100 / price * e.cfg.StartCryptoPrice
}

// ActualQuoteMargin derives the allocation percentage from the contract
// position, relative to the recorded start values.
func (e *Engine) ActualQuoteMargin(position, price float64) float64 {
	return 100 * position / e.cfg.StartCryptoPrice / e.cfg.StartMarginBalance * price / e.cfg.StartCryptoPrice
}
