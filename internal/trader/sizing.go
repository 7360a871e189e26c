// Package trader executes a pending action: a bounded sequence of
// price-advantaged limit order trials, falling back to a single market
// order once the trials are exhausted.
package trader

import (
	"github.com/shopspring/decimal"
)

// MinOrderSize is the smallest order the exchanges accept, in base currency.
const MinOrderSize = 0.001

var (
	feeReserve = decimal.NewFromFloat(1.01)
	sizeEps    = decimal.NewFromFloat(0.000000006)
	minSize    = decimal.NewFromFloat(MinOrderSize)
)

// buyOrderSize computes the buy size in base currency. The quote delta is
// scaled by the price drift since the decision was taken, and about 1% is
// held back for fees. Zero means below minimum.
func buyOrderSize(totalInCrypto, referenceQuote, referencePrice, actualPrice float64) float64 {
	quote := referenceQuote * (referencePrice / actualPrice)
	return orderSize(totalInCrypto, quote)
}

// sellOrderSize mirrors buyOrderSize with the inverse drift correction.
func sellOrderSize(totalInCrypto, referenceQuote, referencePrice, actualPrice float64) float64 {
	quote := referenceQuote / (referencePrice / actualPrice)
	return orderSize(totalInCrypto, quote)
}

func orderSize(totalInCrypto, quote float64) float64 {
	size := decimal.NewFromFloat(totalInCrypto).
		Mul(decimal.NewFromFloat(quote)).
		Div(decimal.NewFromInt(100)).
		Div(feeReserve)
	if size.LessThanOrEqual(minSize) {
		return 0
	}
	out, _ := size.Sub(sizeEps).Round(8).Float64()
	return out
}

// buyPrice lowers the market price by the configured advantage percentage.
func buyPrice(market, advantagePct float64) float64 {
	price := decimal.NewFromFloat(market).
		Div(decimal.NewFromInt(1).Add(decimal.NewFromFloat(advantagePct).Div(decimal.NewFromInt(100))))
	out, _ := price.Round(1).Float64()
	return out
}

// sellPrice raises the market price by the configured advantage percentage.
func sellPrice(market, advantagePct float64) float64 {
	price := decimal.NewFromFloat(market).
		Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(advantagePct).Div(decimal.NewFromInt(100))))
	out, _ := price.Round(1).Float64()
	return out
}
