package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a portfolio definition. Unknown YAML fields are
// an error, so a typo fails the run instead of silently using a default.
// The raw bytes are returned alongside the config for audit storage.
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, nil, err
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, data, err
	}

	return &cfg, data, nil
}

// Hash generates the SHA256 of the config's canonical JSON form. Structs,
// not maps, so field order and thus the hash are reproducible.
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

func applyDefaults(cfg *Config) {
	if cfg.Backtest.AdjustMode == "" {
		cfg.Backtest.AdjustMode = "qfq"
	}
	if cfg.Backtest.Rebalance == "" {
		cfg.Backtest.Rebalance = "NONE"
	}
	if cfg.Backtest.InitialCapital == 0 {
		cfg.Backtest.InitialCapital = 1_000_000
	}
	if cfg.Backtest.TradingDays == 0 {
		cfg.Backtest.TradingDays = 252
	}
	if cfg.TValue.FastMoveWindow == 0 {
		cfg.TValue.FastMoveWindow = 10
	}
	if cfg.TValue.FastMoveThreshold == 0 {
		cfg.TValue.FastMoveThreshold = 0.06
	}
	if cfg.Validation.MaxAbsReturn == 0 {
		cfg.Validation.MaxAbsReturn = 0.20
	}
	if cfg.Validation.RobustZThreshold == 0 {
		cfg.Validation.RobustZThreshold = 5.0
	}
	if cfg.Validation.CrossMeanDiffMax == 0 {
		cfg.Validation.CrossMeanDiffMax = 0.01
	}
	if cfg.Validation.CrossCorrMin == 0 {
		cfg.Validation.CrossCorrMin = 0.95
	}
}
