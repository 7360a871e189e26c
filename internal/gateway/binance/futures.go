package binance

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"balancer/internal/gateway/exchange"
	"balancer/internal/logger"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
)

// Futures implements exchange.MarginGateway on USDT-margined Binance
// futures. Order sizes are expressed in quote-currency notional, rounded
// to whole hundreds, mirroring how the margin position itself is tracked;
// the conversion to a base quantity happens at the API boundary only.
type Futures struct {
	client *futures.Client
	spot   *Spot // transfers are an account-level, not a contract-level, concern
	symbol string
}

func NewFutures(apiKey, apiSecret, symbol string, testnet bool) *Futures {
	futures.UseTestnet = testnet
	return &Futures{
		client: futures.NewClient(apiKey, apiSecret),
		spot:   NewSpot(apiKey, apiSecret, testnet),
		symbol: toSymbol(symbol),
	}
}

func (f *Futures) Name() string { return "binance-futures" }

func (f *Futures) Ticker(ctx context.Context, pair string) (float64, error) {
	tickers, err := f.client.NewListBookTickersService().Symbol(f.contract(pair)).Do(ctx)
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

func (f *Futures) GetBalance(ctx context.Context, currency string) (exchange.Balance, error) {
	balances, err := f.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return exchange.Balance{}, err
	}
	for _, bal := range balances {
		if bal.Asset != currency {
			continue
		}
		total, _ := strconv.ParseFloat(bal.Balance, 64)
		free, _ := strconv.ParseFloat(bal.AvailableBalance, 64)
		return exchange.Balance{Free: free, Used: total - free, Total: total}, nil
	}
	logger.Warnf("No %s balance found", currency)
	return exchange.Balance{}, nil
}

func (f *Futures) PlaceLimitOrder(ctx context.Context, pair string, size, price float64, side exchange.Side) (*exchange.Order, error) {
	notional := toContractSize(size)
	if notional == 0 {
		return nil, fmt.Errorf("order_size %0.f below contract minimum", size)
	}
	resp, err := f.client.NewCreateOrderService().
		Symbol(f.contract(pair)).
		Side(futuresSide(side)).
		Type(futures.OrderTypeLimit).
		TimeInForce(futures.TimeInForceTypeGTC).
		Quantity(formatAmount(notional / price)).
		Price(formatPrice(price)).
		NewClientOrderID(uuid.NewString()).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	return normalizeResponse(resp, exchange.OrderDefaults{Price: price, AmountFiat: notional, FiatSized: true})
}

func (f *Futures) PlaceMarketOrder(ctx context.Context, pair string, size float64, side exchange.Side) (*exchange.Order, error) {
	notional := toContractSize(size)
	if notional == 0 {
		return nil, fmt.Errorf("order_size %0.f below contract minimum", size)
	}
	price, err := f.Ticker(ctx, pair)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.NewCreateOrderService().
		Symbol(f.contract(pair)).
		Side(futuresSide(side)).
		Type(futures.OrderTypeMarket).
		Quantity(formatAmount(notional / price)).
		NewClientOrderID(uuid.NewString()).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	return normalizeResponse(resp, exchange.OrderDefaults{AmountFiat: notional, FiatSized: true})
}

func (f *Futures) CancelOrder(ctx context.Context, pair, id string) error {
	orderID, err := parseOrderID(id)
	if err != nil {
		return err
	}
	_, err = f.client.NewCancelOrderService().Symbol(f.contract(pair)).OrderID(orderID).Do(ctx)
	return err
}

func (f *Futures) OrderStatus(ctx context.Context, pair, id string) (string, error) {
	orderID, err := parseOrderID(id)
	if err != nil {
		return exchange.StatusUnknown, err
	}
	order, err := f.client.NewGetOrderService().Symbol(f.contract(pair)).OrderID(orderID).Do(ctx)
	if err != nil {
		return exchange.StatusUnknown, err
	}
	if order == nil {
		logger.Warnf("Order with id %s not found", id)
		return exchange.StatusUnknown, nil
	}
	return mapStatus(string(order.Status)), nil
}

func (f *Futures) OpenOrders(ctx context.Context, pair string) ([]exchange.Order, error) {
	orders, err := f.client.NewListOpenOrdersService().Symbol(f.contract(pair)).Do(ctx)
	if err != nil {
		return nil, err
	}
	return normalizeList(orders, nil)
}

func (f *Futures) ClosedOrders(ctx context.Context, pair string, limit int) ([]exchange.Order, error) {
	orders, err := f.client.NewListOrdersService().Symbol(f.contract(pair)).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	return normalizeList(orders, func(status string) bool {
		return mapStatus(status) != exchange.StatusCanceled
	})
}

func (f *Futures) Deposits(ctx context.Context, currency string) ([]exchange.Transfer, error) {
	return f.spot.Deposits(ctx, currency)
}

func (f *Futures) Withdrawals(ctx context.Context, currency string) ([]exchange.Transfer, error) {
	return f.spot.Withdrawals(ctx, currency)
}

func (f *Futures) PositionInfo(ctx context.Context) (*exchange.Position, error) {
	risks, err := f.client.NewGetPositionRiskService().Symbol(f.symbol).Do(ctx)
	if err != nil {
		return nil, err
	}
	for _, risk := range risks {
		if risk.Symbol != f.symbol {
			continue
		}
		amt, _ := strconv.ParseFloat(risk.PositionAmt, 64)
		entry, _ := strconv.ParseFloat(risk.EntryPrice, 64)
		mark, _ := strconv.ParseFloat(risk.MarkPrice, 64)
		liq, _ := strconv.ParseFloat(risk.LiquidationPrice, 64)
		notional, _ := strconv.ParseFloat(risk.Notional, 64)
		return &exchange.Position{
			Symbol:           risk.Symbol,
			CurrentQty:       math.Round(notional),
			AvgEntryPrice:    entry,
			MarkPrice:        mark,
			LiquidationPrice: liq,
			HomeNotional:     amt,
			ForeignNotional:  notional,
		}, nil
	}
	return nil, nil
}

// MarginLeverage reports the effective account leverage as a fraction:
// open position notional over total margin balance.
func (f *Futures) MarginLeverage(ctx context.Context) (float64, error) {
	account, err := f.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, err
	}
	marginBalance, _ := strconv.ParseFloat(account.TotalMarginBalance, 64)
	if marginBalance <= 0 {
		return 0, nil
	}
	pos, err := f.PositionInfo(ctx)
	if err != nil {
		return 0, err
	}
	if pos == nil {
		return 0, nil
	}
	price := pos.MarkPrice
	if price <= 0 {
		return 0, nil
	}
	return math.Abs(pos.ForeignNotional) / (marginBalance * price), nil
}

func (f *Futures) SetLeverage(ctx context.Context, leverage float64) error {
	// Binance rejects leverage below 1x; 0 means cross-margin intent upstream.
	lv := int(leverage)
	if lv < 1 {
		lv = 1
	}
	_, err := f.client.NewChangeLeverageService().Symbol(f.symbol).Leverage(lv).Do(ctx)
	if err == nil {
		logger.Infof("Setting leverage to %d", lv)
	}
	return err
}

func (f *Futures) contract(pair string) string {
	if f.symbol != "" {
		return f.symbol
	}
	return toSymbol(pair)
}

func futuresSide(side exchange.Side) futures.SideType {
	if side == exchange.Buy {
		return futures.SideTypeBuy
	}
	return futures.SideTypeSell
}

// toContractSize rounds a quote notional to whole hundreds; zero means the
// order is below the contract minimum.
func toContractSize(amountFiat float64) float64 {
	size := math.Round(amountFiat/100) * 100
	if size >= exchange.MinFiatOrderSize {
		return size
	}
	return 0
}
