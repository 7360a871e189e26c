package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"balancer/internal/app"
	"balancer/internal/config"
	"balancer/internal/logger"
)

func main() {
	simulate := flag.Bool("simulate", false, "evaluate one cycle and print the pending action without trading")
	reportOnly := flag.Bool("report-only", false, "send the daily report immediately and exit")
	keepOrders := flag.Bool("keep-orders", false, "do not cancel open orders at startup")
	flag.Parse()

	cfgPath := os.Getenv("BALANCER_CONFIG")
	if flag.NArg() > 0 {
		cfgPath = flag.Arg(0)
	}
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Loading config failed: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("Opening log file failed: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	instance, err := app.NewApp(cfg, app.Options{
		Simulate:   *simulate,
		ReportOnly: *reportOnly,
		KeepOrders: *keepOrders,
	})
	if err != nil {
		log.Fatalf("Initializing failed: %v", err)
	}
	if err := instance.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Run failed: %v", err)
	}
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
