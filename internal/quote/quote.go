// Package quote computes the target crypto allocation percentage from the
// configuration and the momentum signal.
package quote

import (
	"context"

	"balancer/internal/config"
	"balancer/internal/logger"
	"balancer/internal/momentum"
)

// Modes of the auto-quote calculation.
const (
	ModeOff     = "OFF"
	ModeMM      = "MM"
	ModeMMRange = "MMRange"
)

// Calculator turns the configured mode and the current momentum multiple
// into a target percentage in [0, ceiling].
type Calculator struct {
	cfg    *config.TradingConfig
	margin bool
	source momentum.Source
}

func NewCalculator(cfg *config.TradingConfig, margin bool, source momentum.Source) *Calculator {
	return &Calculator{cfg: cfg, margin: margin, source: source}
}

// Target computes the target quote percentage. In mode OFF the configured
// base percentage is returned verbatim, without consulting the momentum
// source and without applying the ceiling. When the momentum source is
// unavailable the error is momentum.ErrUnavailable and the caller skips
// the cycle.
func (c *Calculator) Target(ctx context.Context) (float64, error) {
	if c.cfg.AutoQuote == ModeOff {
		return c.cfg.CryptoQuotePct, nil
	}
	reading, err := c.source.Read(ctx)
	if err != nil {
		return 0, err
	}
	target := c.compute(reading.Current)
	if target < 0 {
		target = 0
	} else if target > 100 {
		target = 100
	}
	logger.Infof("Auto quote %.2f @ %.2f", target, reading.Current)
	if target > c.cfg.MaxQuotePct {
		logger.Infof("Auto quote limited by configuration to %.2f", c.cfg.MaxQuotePct)
		return c.cfg.MaxQuotePct, nil
	}
	return target, nil
}

func (c *Calculator) compute(m float64) float64 {
	switch c.cfg.AutoQuote {
	case ModeMM:
		if c.margin {
			// Anchored to the multiple recorded at position initiation.
			return 100 * (c.cfg.StartMayerMultiple / m) *
				(c.cfg.CryptoQuotePct / 100 / c.cfg.StartMayerMultiple)
		}
		return c.cfg.CryptoQuotePct / m
	case ModeMMRange:
		return 100 * (m - c.cfg.MMQuote0) / (c.cfg.MMQuote100 - c.cfg.MMQuote0)
	}
	return c.cfg.CryptoQuotePct
}
