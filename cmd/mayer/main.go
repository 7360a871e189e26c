// Command mayer maintains the rolling daily average price the bot's local
// momentum computation is based on. It samples the public ticker once per
// hour, persists the daily rates and publishes the trailing average to the
// file the bot watches.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"balancer/internal/config"
	"balancer/internal/gateway/binance"
	"balancer/internal/logger"
	"balancer/internal/mayerd"
)

func main() {
	cfgPath := os.Getenv("BALANCER_CONFIG")
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Loading config failed: %v", err)
	}
	logger.SetLevel(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controlFile, err := writeControlFile(cfg)
	if err != nil {
		log.Fatalf("Writing control file failed: %v", err)
	}
	defer os.Remove(controlFile)

	// Public market data only, no credentials needed.
	spot := binance.NewSpot("", "", false)
	service, err := mayerd.NewService(cfg.Mayer, cfg.Momentum.AverageFile, func(ctx context.Context) (float64, error) {
		return spot.Ticker(ctx, cfg.Mayer.Pair)
	})
	if err != nil {
		log.Fatalf("Initializing failed: %v", err)
	}
	if err := service.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Run failed: %v", err)
	}
}

func writeControlFile(cfg *config.Config) (string, error) {
	if err := os.MkdirAll(cfg.App.DataDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(cfg.App.DataDir, cfg.App.Instance+".mid")
	content := fmt.Sprintf("%d %s", os.Getpid(), cfg.App.Instance)
	return path, os.WriteFile(path, []byte(content), 0o644)
}
