package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"balancer/internal/gateway/exchange"
	"balancer/internal/logger"

	"github.com/adshao/go-binance/v2"
	"github.com/google/uuid"
)

// Spot implements exchange.Gateway on the Binance spot API.
type Spot struct {
	client *binance.Client
}

func NewSpot(apiKey, apiSecret string, testnet bool) *Spot {
	binance.UseTestnet = testnet
	return &Spot{client: binance.NewClient(apiKey, apiSecret)}
}

func (s *Spot) Name() string { return "binance" }

func (s *Spot) Ticker(ctx context.Context, pair string) (float64, error) {
	tickers, err := s.client.NewListBookTickersService().Symbol(toSymbol(pair)).Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(tickers) == 0 {
		return 0, fmt.Errorf("no ticker for %s", pair)
	}
	bid, err := strconv.ParseFloat(tickers[0].BidPrice, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable bid price %q: %w", tickers[0].BidPrice, err)
	}
	return bid, nil
}

func (s *Spot) GetBalance(ctx context.Context, currency string) (exchange.Balance, error) {
	account, err := s.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return exchange.Balance{}, err
	}
	for _, bal := range account.Balances {
		if bal.Asset != currency {
			continue
		}
		free, _ := strconv.ParseFloat(bal.Free, 64)
		used, _ := strconv.ParseFloat(bal.Locked, 64)
		return exchange.Balance{Free: free, Used: used, Total: free + used}, nil
	}
	logger.Warnf("No %s balance found", currency)
	return exchange.Balance{}, nil
}

func (s *Spot) PlaceLimitOrder(ctx context.Context, pair string, size, price float64, side exchange.Side) (*exchange.Order, error) {
	resp, err := s.client.NewCreateOrderService().
		Symbol(toSymbol(pair)).
		Side(spotSide(side)).
		Type(binance.OrderTypeLimit).
		TimeInForce(binance.TimeInForceTypeGTC).
		Quantity(formatAmount(size)).
		Price(formatPrice(price)).
		NewClientOrderID(uuid.NewString()).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	return normalizeResponse(resp, exchange.OrderDefaults{Price: price, AmountCrypto: size})
}

func (s *Spot) PlaceMarketOrder(ctx context.Context, pair string, size float64, side exchange.Side) (*exchange.Order, error) {
	resp, err := s.client.NewCreateOrderService().
		Symbol(toSymbol(pair)).
		Side(spotSide(side)).
		Type(binance.OrderTypeMarket).
		Quantity(formatAmount(size)).
		NewClientOrderID(uuid.NewString()).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	return normalizeResponse(resp, exchange.OrderDefaults{AmountCrypto: size})
}

func (s *Spot) CancelOrder(ctx context.Context, pair, id string) error {
	orderID, err := parseOrderID(id)
	if err != nil {
		return err
	}
	_, err = s.client.NewCancelOrderService().Symbol(toSymbol(pair)).OrderID(orderID).Do(ctx)
	return err
}

func (s *Spot) OrderStatus(ctx context.Context, pair, id string) (string, error) {
	orderID, err := parseOrderID(id)
	if err != nil {
		return exchange.StatusUnknown, err
	}
	order, err := s.client.NewGetOrderService().Symbol(toSymbol(pair)).OrderID(orderID).Do(ctx)
	if err != nil {
		return exchange.StatusUnknown, err
	}
	if order == nil {
		logger.Warnf("Order with id %s not found", id)
		return exchange.StatusUnknown, nil
	}
	return mapStatus(string(order.Status)), nil
}

func (s *Spot) OpenOrders(ctx context.Context, pair string) ([]exchange.Order, error) {
	orders, err := s.client.NewListOpenOrdersService().Symbol(toSymbol(pair)).Do(ctx)
	if err != nil {
		return nil, err
	}
	return normalizeList(orders, nil)
}

func (s *Spot) ClosedOrders(ctx context.Context, pair string, limit int) ([]exchange.Order, error) {
	orders, err := s.client.NewListOrdersService().Symbol(toSymbol(pair)).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	return normalizeList(orders, func(status string) bool {
		return mapStatus(status) != exchange.StatusCanceled
	})
}

func (s *Spot) Deposits(ctx context.Context, currency string) ([]exchange.Transfer, error) {
	deposits, err := s.client.NewListDepositsService().Coin(currency).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]exchange.Transfer, 0, len(deposits))
	for _, d := range deposits {
		amount, _ := strconv.ParseFloat(d.Amount, 64)
		out = append(out, exchange.Transfer{
			Amount:    amount,
			Currency:  currency,
			Timestamp: time.UnixMilli(d.InsertTime).UTC(),
		})
	}
	return out, nil
}

func (s *Spot) Withdrawals(ctx context.Context, currency string) ([]exchange.Transfer, error) {
	withdrawals, err := s.client.NewListWithdrawsService().Coin(currency).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]exchange.Transfer, 0, len(withdrawals))
	for _, w := range withdrawals {
		amount, _ := strconv.ParseFloat(w.Amount, 64)
		out = append(out, exchange.Transfer{Amount: amount, Currency: currency})
	}
	return out, nil
}

func spotSide(side exchange.Side) binance.SideType {
	if side == exchange.Buy {
		return binance.SideTypeBuy
	}
	return binance.SideTypeSell
}

// mapStatus folds the Binance order states into the canonical set.
func mapStatus(status string) string {
	switch status {
	case "NEW", "PARTIALLY_FILLED":
		return exchange.StatusOpen
	case "FILLED":
		return exchange.StatusFilled
	case "CANCELED", "REJECTED", "EXPIRED", "EXPIRED_IN_MATCH":
		return exchange.StatusCanceled
	}
	return exchange.StatusUnknown
}

func parseOrderID(id string) (int64, error) {
	orderID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable order id %q: %w", id, err)
	}
	return orderID, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 8, 64)
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// normalizeResponse funnels an SDK response through the canonical order
// normalization, so every family produces identical Order values.
func normalizeResponse(resp any, defaults exchange.OrderDefaults) (*exchange.Order, error) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	order, err := exchange.NormalizeOrder(string(raw), defaults)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func normalizeList[T any](orders []T, keep func(status string) bool) ([]exchange.Order, error) {
	out := make([]exchange.Order, 0, len(orders))
	for _, o := range orders {
		raw, err := json.Marshal(o)
		if err != nil {
			return nil, err
		}
		if keep != nil {
			status := statusOf(raw)
			if !keep(status) {
				continue
			}
		}
		order, err := exchange.NormalizeOrder(string(raw), exchange.OrderDefaults{})
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, nil
}

func statusOf(raw []byte) string {
	var probe struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(raw, &probe)
	return probe.Status
}
