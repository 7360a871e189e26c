package app

import (
	"encoding/json"
	"os"
	"path/filepath"

	"balancer/internal/config"
	"balancer/internal/logger"
)

// startValues is the runtime-mutable subset of the trading configuration:
// the margin position's start anchor and the deposit reference. It lives in
// a sidecar file next to the data so the static config stays untouched.
type startValues struct {
	StartCryptoPrice     float64 `json:"start_crypto_price"`
	StartMarginBalance   float64 `json:"start_margin_balance"`
	StartMayerMultiple   float64 `json:"start_mayer_multiple"`
	StartDate            string  `json:"start_date"`
	NetDepositsBase      float64 `json:"net_deposits_in_base_currency"`
	ReferenceNetDeposits float64 `json:"reference_net_deposits"`
}

func startValuesPath(cfg *config.Config) string {
	return filepath.Join(cfg.App.DataDir, cfg.App.Instance+".start.json")
}

// applyStartValues overlays persisted start values onto the configuration.
// The sidecar wins over the config file: it reflects what the bot actually
// recorded at position initiation.
func applyStartValues(cfg *config.Config) {
	raw, err := os.ReadFile(startValuesPath(cfg))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("Cannot read start values: %v", err)
		}
		return
	}
	var values startValues
	if err := json.Unmarshal(raw, &values); err != nil {
		logger.Warnf("Corrupt start values file: %v", err)
		return
	}
	cfg.Trading.StartCryptoPrice = values.StartCryptoPrice
	cfg.Trading.StartMarginBalance = values.StartMarginBalance
	cfg.Trading.StartMayerMultiple = values.StartMayerMultiple
	cfg.Trading.StartDate = values.StartDate
	if values.NetDepositsBase != 0 {
		cfg.Trading.NetDepositsBase = values.NetDepositsBase
	}
	cfg.Trading.ReferenceNetDeposits = values.ReferenceNetDeposits
}

// saveStartValues persists the current trading start values.
func saveStartValues(cfg *config.Config) error {
	values := startValues{
		StartCryptoPrice:     cfg.Trading.StartCryptoPrice,
		StartMarginBalance:   cfg.Trading.StartMarginBalance,
		StartMayerMultiple:   cfg.Trading.StartMayerMultiple,
		StartDate:            cfg.Trading.StartDate,
		NetDepositsBase:      cfg.Trading.NetDepositsBase,
		ReferenceNetDeposits: cfg.Trading.ReferenceNetDeposits,
	}
	raw, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.App.DataDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(startValuesPath(cfg), raw, 0o644)
}
