package report

import (
	"context"

	"balancer/internal/logger"
	"balancer/internal/momentum"
	"balancer/internal/stats"
)

// figures is everything a report renders, collected in one pass so the text
// and the CSV row always agree.
type figures struct {
	price         float64
	marginBalance float64
	today         stats.Today
	netDeposits   *float64
	actualQuote   float64
	leveragePct   *float64
	targetPos     *float64
	liquidation   *float64
	reading       *momentum.Reading
	advice        string
}

func (b *Builder) collect(ctx context.Context, daily bool) (*figures, error) {
	fig := &figures{}
	price, err := b.account.Price(ctx)
	if err != nil {
		return nil, err
	}
	fig.price = price
	fig.marginBalance, err = b.account.MarginBalance(ctx)
	if err != nil {
		return nil, err
	}
	if deposits, err := b.account.NetDeposits(ctx, false); err != nil {
		logger.Warnf("Cannot compute net deposits: %v", err)
	} else {
		fig.netDeposits = &deposits
	}
	if b.cfg.Exchange.IsMargin() {
		if err := b.collectMargin(ctx, fig, daily); err != nil {
			return nil, err
		}
	} else {
		if err := b.collectSpot(ctx, fig, daily); err != nil {
			return nil, err
		}
	}
	fig.reading = b.source.AdviceReading(ctx)
	fig.advice = momentum.Evaluate(fig.reading)
	return fig, nil
}

func (b *Builder) collectSpot(ctx context.Context, fig *figures, daily bool) error {
	crypto, err := b.account.CryptoBalance(ctx)
	if err != nil {
		return err
	}
	fiat, err := b.account.FiatBalance(ctx)
	if err != nil {
		return err
	}
	fig.today, err = b.tracker.Update(crypto.Total, fiat.Total, fig.price, daily)
	if err != nil {
		return err
	}
	total := crypto.Total + fiat.Total/fig.price
	if crypto.Total > 0 && total > 0 {
		fig.actualQuote = crypto.Total / total * 100
	}
	return nil
}

func (b *Builder) collectMargin(ctx context.Context, fig *figures, daily bool) error {
	fiatMargin, err := b.account.FiatMarginBalance(ctx)
	if err != nil {
		return err
	}
	fig.today, err = b.tracker.Update(fig.marginBalance, fiatMargin, fig.price, daily)
	if err != nil {
		return err
	}
	pos, err := b.account.Position(ctx)
	if err != nil {
		return err
	}
	if pos != nil {
		fig.actualQuote = b.engine.ActualQuoteMargin(pos.CurrentQty, fig.price)
		if pos.LiquidationPrice > 0 {
			liq := pos.LiquidationPrice
			fig.liquidation = &liq
		}
	}
	if lev, ok, err := b.account.Leverage(ctx); err != nil {
		return err
	} else if ok {
		pct := lev * 100
		fig.leveragePct = &pct
	}
	if target, err := b.calc.Target(ctx); err != nil {
		logger.Warnf("Cannot compute target position: %v", err)
	} else {
		pos := b.engine.TargetPosition(target, fig.price)
		fig.targetPos = &pos
	}
	return nil
}
