package quote

import (
	"context"
	"testing"

	"balancer/internal/config"
	"balancer/internal/momentum"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	reading momentum.Reading
	err     error
}

func (s stubSource) Read(context.Context) (momentum.Reading, error) {
	return s.reading, s.err
}

func TestTargetModeOff(t *testing.T) {
	cfg := &config.TradingConfig{AutoQuote: ModeOff, CryptoQuotePct: 80, MaxQuotePct: 60}
	// Mode OFF never consults the source and ignores the ceiling.
	calc := NewCalculator(cfg, false, stubSource{err: momentum.ErrUnavailable})

	target, err := calc.Target(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 80.0, target)
}

func TestTargetModeMM(t *testing.T) {
	cfg := &config.TradingConfig{AutoQuote: ModeMM, CryptoQuotePct: 100, MaxQuotePct: 100}
	calc := NewCalculator(cfg, false, stubSource{reading: momentum.Reading{Current: 2}})

	target, err := calc.Target(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 50, target, 1e-9)
}

func TestTargetModeMMMargin(t *testing.T) {
	cfg := &config.TradingConfig{
		AutoQuote:          ModeMM,
		CryptoQuotePct:     50,
		MaxQuotePct:        100,
		StartMayerMultiple: 1.5,
	}
	calc := NewCalculator(cfg, true, stubSource{reading: momentum.Reading{Current: 2}})

	target, err := calc.Target(context.Background())
	require.NoError(t, err)
	// Anchored variant reduces to base/m.
	assert.InDelta(t, 25, target, 1e-9)
}

func TestTargetModeMMRange(t *testing.T) {
	cfg := &config.TradingConfig{
		AutoQuote:   ModeMMRange,
		MMQuote0:    2.4,
		MMQuote100:  1.0,
		MaxQuotePct: 100,
	}
	for _, tc := range []struct {
		multiple float64
		want     float64
	}{
		{1.0, 100},
		{1.7, 50},
		{2.4, 0},
		{3.0, 0},   // clamped at the floor
		{0.5, 100}, // clamped at the cap
	} {
		calc := NewCalculator(cfg, false, stubSource{reading: momentum.Reading{Current: tc.multiple}})
		target, err := calc.Target(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, tc.want, target, 1e-9, "multiple %.2f", tc.multiple)
	}
}

func TestTargetCeiling(t *testing.T) {
	cfg := &config.TradingConfig{AutoQuote: ModeMM, CryptoQuotePct: 100, MaxQuotePct: 60}
	calc := NewCalculator(cfg, false, stubSource{reading: momentum.Reading{Current: 0.5}})

	target, err := calc.Target(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60.0, target)
}

func TestTargetUnavailableSource(t *testing.T) {
	cfg := &config.TradingConfig{AutoQuote: ModeMM, CryptoQuotePct: 100, MaxQuotePct: 100}
	calc := NewCalculator(cfg, false, stubSource{err: momentum.ErrUnavailable})

	_, err := calc.Target(context.Background())
	assert.ErrorIs(t, err, momentum.ErrUnavailable)
}
