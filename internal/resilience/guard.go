package resilience

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"balancer/internal/logger"
)

const retryMessage = "Got an error %v calling %s, retrying in about 5 seconds..."

// Guard owns the retry policy around gateway calls. There is exactly one
// per process; Deactivate is invoked for account-class errors and is
// expected not to return.
type Guard struct {
	deactivate func(reason string)
	sleep      func(ctx context.Context, d time.Duration)
}

func NewGuard(deactivate func(reason string)) *Guard {
	return &Guard{
		deactivate: deactivate,
		sleep:      sleepCtx,
	}
}

// Do runs fn until it succeeds. Transient errors are retried forever with a
// 4-6s jittered backoff; stop errors return ErrStop wrapping the cause;
// account errors deactivate the bot.
func (g *Guard) Do(ctx context.Context, op string, fn func() error) error {
	return g.run(ctx, op, 0, fn)
}

// DoLimited behaves like Do but gives up with ErrExhausted after the given
// number of attempts. Used for ticker fetches, where the caller accepts a
// sentinel price instead of blocking a cycle forever.
func (g *Guard) DoLimited(ctx context.Context, op string, attempts int, fn func() error) error {
	return g.run(ctx, op, attempts, fn)
}

func (g *Guard) run(ctx context.Context, op string, limit int, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		switch Classify(err) {
		case Account:
			logger.Errorf("%v", err)
			g.deactivate(err.Error())
			return err
		case Stop:
			return fmt.Errorf("%s: %w: %w", op, ErrStop, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Errorf(retryMessage, err, op)
		if limit > 0 && attempt >= limit {
			return fmt.Errorf("%s: %w", op, ErrExhausted)
		}
		g.sleep(ctx, Jitter(4*time.Second, 6*time.Second))
	}
}

// DoLeverage runs a leverage-setting call. Two conditions warrant a much
// longer pause than the usual backoff: a freshly created account that holds
// no funds yet, and a temporary permission refusal.
func (g *Guard) DoLeverage(ctx context.Context, fn func() error) error {
	for {
		err := fn()
		if err == nil {
			return nil
		}
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "account has zero"):
			logger.Warnf("Account not funded yet, retrying in 20 minutes")
			g.sleep(ctx, 20*time.Minute)
		case strings.Contains(msg, "forbidden"):
			logger.Warnf("Access denied, retrying in 40 minutes")
			g.sleep(ctx, 40*time.Minute)
		default:
			if Classify(err) == Stop {
				logger.Warnf("Insufficient available balance - not setting leverage: %v", err)
				return nil
			}
			if Classify(err) == Account {
				logger.Errorf("%v", err)
				g.deactivate(err.Error())
				return err
			}
			logger.Errorf(retryMessage, err, "SetLeverage")
			g.sleep(ctx, Jitter(4*time.Second, 6*time.Second))
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Jitter returns a uniformly random duration in [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Sleep pauses for the given duration, waking early when ctx is canceled.
func Sleep(ctx context.Context, d time.Duration) {
	sleepCtx(ctx, d)
}
