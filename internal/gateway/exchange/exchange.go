package exchange

import "context"

// Gateway is the capability set every exchange family provides.
// All calls are synchronous and may fail with backend-specific errors;
// the resilience layer owns their classification and retry policy.
type Gateway interface {
	Name() string

	// Ticker returns the current bid price of the pair.
	Ticker(ctx context.Context, pair string) (float64, error)

	GetBalance(ctx context.Context, currency string) (Balance, error)

	PlaceLimitOrder(ctx context.Context, pair string, size, price float64, side Side) (*Order, error)

	PlaceMarketOrder(ctx context.Context, pair string, size float64, side Side) (*Order, error)

	CancelOrder(ctx context.Context, pair, id string) error

	OrderStatus(ctx context.Context, pair, id string) (string, error)

	OpenOrders(ctx context.Context, pair string) ([]Order, error)

	// ClosedOrders returns the most recent non-canceled orders, oldest first.
	ClosedOrders(ctx context.Context, pair string, limit int) ([]Order, error)

	Deposits(ctx context.Context, currency string) ([]Transfer, error)

	Withdrawals(ctx context.Context, currency string) ([]Transfer, error)
}

// MarginGateway extends Gateway for exchange families that trade a
// leveraged contract position instead of spot wallet balances.
type MarginGateway interface {
	Gateway

	PositionInfo(ctx context.Context) (*Position, error)

	// MarginLeverage returns the account leverage as a fraction (0.1 = 10%).
	MarginLeverage(ctx context.Context) (float64, error)

	SetLeverage(ctx context.Context, leverage float64) error
}
