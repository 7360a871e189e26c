package momentum

import (
	"context"
	"errors"
)

// Source supplies momentum readings.
type Source interface {
	Read(ctx context.Context) (Reading, error)
}

// PriceFunc returns the current traded price.
type PriceFunc func(ctx context.Context) (float64, error)

// Combined layers the locally computed multiple over the remote endpoint.
// The quote calculator prefers the local value: it is derived from the very
// ticker the bot trades on, while the remote endpoint lags and flattens
// intraday moves. The remote endpoint remains the only holder of the
// historical average, which the report needs for its advice line.
type Combined struct {
	remote  Source
	price   PriceFunc
	average *AverageFile
}

func NewCombined(remote Source, price PriceFunc, average *AverageFile) *Combined {
	return &Combined{remote: remote, price: price, average: average}
}

// Read returns the current multiple, locally computed when possible.
func (c *Combined) Read(ctx context.Context) (Reading, error) {
	if reading, ok := c.local(ctx); ok {
		return reading, nil
	}
	return c.remote.Read(ctx)
}

// AdviceReading fetches the remote reading for report advice, patching a
// non-positive current value with the locally computed one. A nil result
// means the advice line shows "n/a"; the report still goes out.
func (c *Combined) AdviceReading(ctx context.Context) *Reading {
	reading, err := c.remote.Read(ctx)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			return nil
		}
		if local, ok := c.local(ctx); ok {
			return &local
		}
		return nil
	}
	if reading.Current <= 0 {
		if local, ok := c.local(ctx); ok {
			reading.Current = local.Current
		}
	}
	return &reading
}

func (c *Combined) local(ctx context.Context) (Reading, bool) {
	if c.average == nil || c.price == nil {
		return Reading{}, false
	}
	average := c.average.Average()
	if average <= 0 {
		return Reading{}, false
	}
	price, err := c.price(ctx)
	if err != nil || price <= 0 {
		return Reading{}, false
	}
	return Reading{Current: price / average}, true
}
