// Package binance implements the exchange gateway on the go-binance SDK,
// in two families: Spot wallets and USDT-margined futures contracts.
package binance

import "strings"

// toSymbol converts a canonical pair ("BTC/USDT") into the slash-free
// symbol Binance expects ("BTCUSDT"). Symbols pass through unchanged.
func toSymbol(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(pair), "/", ""))
}
