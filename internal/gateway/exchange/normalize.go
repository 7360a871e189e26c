package exchange

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// MinFiatOrderSize is the smallest contract order accepted by the margin
// family, in quote currency units.
const MinFiatOrderSize = 100

// OrderDefaults carries the values known at submission time, used to fill
// fields the exchange response omits.
type OrderDefaults struct {
	Price        float64
	AmountCrypto float64
	AmountFiat   float64
	// FiatSized marks orders whose amount is expressed in quote currency
	// notional (margin family) rather than base currency.
	FiatSized bool
}

// NormalizeOrder maps a raw order payload into the canonical Order type.
// Exchanges disagree on field names and on whether fields live at the top
// level or nested under an "info" sub-object, so every field is probed
// independently: top-level candidates first, then the nested equivalents.
func NormalizeOrder(raw string, defaults OrderDefaults) (Order, error) {
	if !gjson.Valid(raw) {
		return Order{}, fmt.Errorf("order payload is not valid JSON")
	}
	doc := gjson.Parse(raw)
	order := Order{
		ID:        probeString(doc, "id", "orderId", "uuid", "info.id", "info.orderId"),
		Side:      normalizeSide(probeString(doc, "side", "direction", "info.side", "info.direction")),
		Price:     normalizePrice(probeFloat(doc, "price", "info.price"), defaults.Price),
		Timestamp: probeTime(doc, "datetime", "created_at", "transactTime", "time", "updateTime", "info.created_at", "info.datetime"),
	}
	rawAmount := probeResult(doc, "amount", "origQty", "executedQty", "info.amount", "info.origQty")
	rawPrice := probeResult(doc, "price", "info.price")
	order.Amount = normalizeAmount(rawAmount, rawPrice, defaults)
	return order, nil
}

func probeResult(doc gjson.Result, paths ...string) gjson.Result {
	for _, path := range paths {
		if res := doc.Get(path); res.Exists() {
			return res
		}
	}
	return gjson.Result{}
}

func probeString(doc gjson.Result, paths ...string) string {
	res := probeResult(doc, paths...)
	if !res.Exists() {
		return ""
	}
	return res.String()
}

func probeFloat(doc gjson.Result, paths ...string) float64 {
	res := probeResult(doc, paths...)
	if !res.Exists() {
		return 0
	}
	return res.Float()
}

func probeTime(doc gjson.Result, paths ...string) time.Time {
	res := probeResult(doc, paths...)
	if !res.Exists() {
		return time.Time{}
	}
	if res.Type == gjson.Number {
		return fromEpoch(res.Int())
	}
	text := strings.TrimSpace(res.String())
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// fromEpoch accepts seconds or milliseconds since the epoch.
func fromEpoch(v int64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}

func normalizeSide(side string) Side {
	switch strings.ToLower(strings.TrimSpace(side)) {
	case "buy", "long":
		return Buy
	case "sell", "short":
		return Sell
	}
	return ""
}

// normalizePrice rounds to whole quote units, matching how fills are
// compared downstream. The submitted price backs a response without one.
func normalizePrice(fromPayload, fallback float64) float64 {
	if fromPayload > 0 {
		return math.Round(fromPayload)
	}
	if fallback > 0 {
		return math.Round(fallback)
	}
	return 0
}

// normalizeAmount resolves the order amount. For fiat-sized (margin) orders
// the submitted quote notional wins; a base-denominated payload amount is
// converted via the payload price when it is obviously not a contract size.
func normalizeAmount(rawAmount, rawPrice gjson.Result, defaults OrderDefaults) float64 {
	if defaults.FiatSized {
		if defaults.AmountFiat > 0 {
			return defaults.AmountFiat
		}
		amount := rawAmount.Float()
		if amount == 0 || amount >= MinFiatOrderSize || !rawPrice.Exists() {
			return amount
		}
		return math.Round(rawPrice.Float() * amount)
	}
	if rawAmount.Exists() {
		return rawAmount.Float()
	}
	return defaults.AmountCrypto
}
