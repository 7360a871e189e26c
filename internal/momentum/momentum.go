// Package momentum supplies the Mayer multiple, the ratio of the current
// price to a trailing long-window average price. The rest of the bot treats
// it as an opaque input number.
package momentum

import "errors"

// ErrUnavailable means no source could supply a reading. Callers skip the
// current cycle; the value is never substituted with zero.
var ErrUnavailable = errors.New("momentum signal unavailable")

// Reading is a momentum observation. Average is zero when the source only
// knows the current multiple (the local fallback).
type Reading struct {
	Current float64
	Average float64
}

// sellThreshold is the multiple above which the market is considered
// historically overheated.
const sellThreshold = 2.4

// Advice values shown in reports.
const (
	AdviceBuy  = "BUY"
	AdviceSell = "SELL"
	AdviceHold = "HOLD"
	AdviceNA   = "n/a"
)

// Evaluate turns a reading into a report advice. It never drives trading.
func Evaluate(r *Reading) string {
	switch {
	case r == nil:
		return AdviceNA
	case r.Average > 0 && r.Current < r.Average:
		return AdviceBuy
	case r.Current > sellThreshold:
		return AdviceSell
	}
	return AdviceHold
}

// SellThreshold exposes the advice ceiling for report formatting.
func SellThreshold() float64 { return sellThreshold }
