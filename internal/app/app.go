// Package app assembles and runs a bot instance.
package app

import (
	"context"
	"fmt"

	"balancer/internal/config"
	"balancer/internal/momentum"

	"golang.org/x/sync/errgroup"
)

// Version is reported in the daily report and the startup banner.
const Version = "1.5.2"

// App owns the assembled bot and the resources that outlive a cycle.
type App struct {
	cfg     *config.Config
	bot     *Bot
	average *momentum.AverageFile
}

// NewApp builds the application object from the configuration, without
// starting it.
func NewApp(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return buildAppWithWire(context.Background(), cfg, opts)
}

// Run drives the trade loop until ctx is canceled or the bot deactivates.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.bot == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.average.Close()
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.bot.Run(ctx)
	})
	return group.Wait()
}
