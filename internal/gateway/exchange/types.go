// Package exchange defines the canonical types and the capability interface
// the bot consumes from a trading exchange. Concrete backends (Binance spot,
// Binance futures) normalize their heterogeneous responses into these types
// so the core never probes backend-specific fields.
package exchange

import (
	"fmt"
	"time"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Opposite returns the other trade direction.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Order holds the relevant data of an exchange order. Immutable once built.
type Order struct {
	ID        string
	Price     float64
	Amount    float64
	Side      Side
	Timestamp time.Time
}

func (o Order) String() string {
	return fmt.Sprintf("%s, price: %.8g, amount: %.8g, order id: %s, created: %s",
		o.Side, o.Price, o.Amount, o.ID, o.Timestamp.UTC().Format(time.RFC3339))
}

// Balance is a per-currency wallet balance.
type Balance struct {
	Free  float64
	Used  float64
	Total float64
}

// Position describes the open contract position on a margin exchange.
type Position struct {
	Symbol           string
	CurrentQty       float64
	AvgEntryPrice    float64
	MarkPrice        float64
	LiquidationPrice float64
	// HomeNotional is the position value in base currency, negative when short.
	HomeNotional float64
	// ForeignNotional is the position value in quote currency.
	ForeignNotional float64
}

// Transfer is a deposit or withdrawal of a single currency.
type Transfer struct {
	Amount    float64
	Currency  string
	Timestamp time.Time
}

// Order status values as normalized by the gateways.
const (
	StatusOpen     = "open"
	StatusActive   = "active"
	StatusFilled   = "filled"
	StatusClosed   = "closed"
	StatusCanceled = "canceled"
	StatusUnknown  = "unknown"
)

// IsOpenStatus reports whether an order in the given state is still working.
func IsOpenStatus(status string) bool {
	return status == StatusOpen || status == StatusActive
}

// IsFilledStatus reports whether an order in the given state has been executed.
func IsFilledStatus(status string) bool {
	return status == StatusFilled || status == StatusClosed
}
