package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOrderTopLevelFields(t *testing.T) {
	raw := `{"orderId":12345,"side":"BUY","price":"9901.3","origQty":"0.099","transactTime":1719230400000}`
	order, err := NormalizeOrder(raw, OrderDefaults{})
	require.NoError(t, err)
	assert.Equal(t, "12345", order.ID)
	assert.Equal(t, Buy, order.Side)
	assert.Equal(t, 9901.0, order.Price)
	assert.InDelta(t, 0.099, order.Amount, 1e-9)
	assert.Equal(t, 2024, order.Timestamp.Year())
}

func TestNormalizeOrderNestedInfoFields(t *testing.T) {
	raw := `{"info":{"id":"abc","side":"sell","price":10100.4,"amount":0.05,"created_at":"2026-08-28T12:00:00Z"}}`
	order, err := NormalizeOrder(raw, OrderDefaults{})
	require.NoError(t, err)
	assert.Equal(t, "abc", order.ID)
	assert.Equal(t, Sell, order.Side)
	assert.Equal(t, 10100.0, order.Price)
	assert.InDelta(t, 0.05, order.Amount, 1e-9)
	assert.Equal(t, time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC), order.Timestamp)
}

func TestNormalizeOrderPriceFallback(t *testing.T) {
	raw := `{"orderId":1,"side":"buy"}`
	order, err := NormalizeOrder(raw, OrderDefaults{Price: 9901.4, AmountCrypto: 0.1})
	require.NoError(t, err)
	assert.Equal(t, 9901.0, order.Price)
	assert.Equal(t, 0.1, order.Amount)
}

func TestNormalizeOrderFiatSized(t *testing.T) {
	// The submitted notional wins over whatever the payload reports.
	raw := `{"orderId":1,"side":"buy","price":10000,"origQty":"0.05"}`
	order, err := NormalizeOrder(raw, OrderDefaults{AmountFiat: 500, FiatSized: true})
	require.NoError(t, err)
	assert.Equal(t, 500.0, order.Amount)
}

func TestNormalizeOrderFiatSizedConvertsBaseAmount(t *testing.T) {
	// A base-denominated amount well under the contract minimum is
	// converted via the payload price.
	raw := `{"orderId":1,"side":"buy","price":10000,"amount":0.05}`
	order, err := NormalizeOrder(raw, OrderDefaults{FiatSized: true})
	require.NoError(t, err)
	assert.Equal(t, 500.0, order.Amount)
}

func TestNormalizeOrderRejectsGarbage(t *testing.T) {
	_, err := NormalizeOrder("not json", OrderDefaults{})
	assert.Error(t, err)
}

func TestNormalizeSideVariants(t *testing.T) {
	assert.Equal(t, Buy, normalizeSide(" BUY "))
	assert.Equal(t, Buy, normalizeSide("long"))
	assert.Equal(t, Sell, normalizeSide("Short"))
	assert.Equal(t, Side(""), normalizeSide("hold"))
}

func TestFromEpoch(t *testing.T) {
	secs := fromEpoch(1719230400)
	millis := fromEpoch(1719230400000)
	assert.Equal(t, secs, millis)
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, IsOpenStatus(StatusOpen))
	assert.True(t, IsOpenStatus(StatusActive))
	assert.False(t, IsOpenStatus(StatusFilled))
	assert.True(t, IsFilledStatus(StatusFilled))
	assert.True(t, IsFilledStatus(StatusClosed))
	assert.False(t, IsFilledStatus(StatusCanceled))
}
