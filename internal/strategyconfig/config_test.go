package strategyconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleYAML = `meta:
  portfolio_id: allweather_cn_v1
  version: "1.0"
  timezone: Asia/Shanghai
universe:
  assets:
    - code: 510300.SH
      name: CSI 300 ETF
      weight: 0.30
    - code: 511010.SH
      name: Treasury Bond ETF
      weight: 0.55
      role: bond
    - code: 518880.SH
      name: Gold ETF
      weight: 0.15
backtest:
  adjust_mode: qfq
  rebalance: Q
  initial_capital: 1000000
  risk_free_annual: 0.025
tvalue:
  short: 20
  mid: 60
  long: 120
  confirm_days: 3
  cooldown_days: 10
gridsearch:
  short: [10, 20]
  mid: [40, 60]
  long: [100, 120]
  workers: 4
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portfolio.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, yamlData, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(yamlData) == 0 {
		t.Error("expected raw yaml bytes")
	}

	if cfg.Meta.PortfolioID != "allweather_cn_v1" {
		t.Errorf("expected portfolio_id=allweather_cn_v1, got %s", cfg.Meta.PortfolioID)
	}
	if cfg.Backtest.Rebalance != "Q" {
		t.Errorf("expected rebalance=Q, got %s", cfg.Backtest.Rebalance)
	}

	// Defaults fill in what the file omits.
	if cfg.Backtest.TradingDays != 252 {
		t.Errorf("expected trading_days default 252, got %d", cfg.Backtest.TradingDays)
	}
	if cfg.TValue.FastMoveWindow != 10 {
		t.Errorf("expected fast_move_window default 10, got %d", cfg.TValue.FastMoveWindow)
	}
	if cfg.Validation.RobustZThreshold != 5.0 {
		t.Errorf("expected robust_z_threshold default 5.0, got %v", cfg.Validation.RobustZThreshold)
	}
}

func TestLoadUnknownField(t *testing.T) {
	content := strings.Replace(sampleYAML, "timezone: Asia/Shanghai", "timezone: Asia/Shanghai\n  typo_field: 1", 1)
	if _, _, err := Load(writeConfig(t, content)); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		old     string
		new     string
		wantSub string
	}{
		{"bad rebalance", "rebalance: Q", "rebalance: W", "backtest.rebalance"},
		{"bad adjust mode", "adjust_mode: qfq", "adjust_mode: hfq", "backtest.adjust_mode"},
		{"windows not increasing", "mid: 60\n  long: 120", "mid: 20\n  long: 120", "tvalue"},
		{"negative weight", "weight: 0.15", "weight: -0.15", "weight"},
		{"duplicate code", "code: 518880.SH", "code: 510300.SH", "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := strings.Replace(sampleYAML, tt.old, tt.new, 1)
			_, _, err := Load(writeConfig(t, content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantSub, err)
			}
		})
	}
}

func TestHashDeterministic(t *testing.T) {
	cfg, _, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	hash, err := Hash(cfg)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(hash))
	}

	hash2, _ := Hash(cfg)
	if hash != hash2 {
		t.Error("hash not deterministic")
	}

	// A changed weight changes the hash.
	changed, _, err := Load(writeConfig(t, strings.Replace(sampleYAML, "weight: 0.30", "weight: 0.35", 1)))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	hash3, _ := Hash(changed)
	if hash == hash3 {
		t.Error("expected different hash for different weights")
	}
}

func TestAccessors(t *testing.T) {
	cfg, _, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	weights := cfg.Weights()
	if weights["511010.SH"] != 0.55 {
		t.Errorf("expected weight 0.55, got %v", weights["511010.SH"])
	}

	codes := cfg.Codes()
	if len(codes) != 3 || codes[0] != "510300.SH" {
		t.Errorf("unexpected codes %v", codes)
	}

	bond, cash := cfg.BufferCodes()
	if bond != "511010.SH" {
		t.Errorf("expected bond buffer 511010.SH, got %s", bond)
	}
	if cash != "" {
		t.Errorf("expected no cash buffer, got %s", cash)
	}
}
