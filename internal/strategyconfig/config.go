// Package strategyconfig loads and validates the portfolio definition file.
// The YAML file is the single source of truth for a run: universe, weights,
// backtest parameters and sweep grids all come from it, and its hash ties a
// stored result back to the exact configuration that produced it.
package strategyconfig

// Config is the full portfolio definition.
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Universe   Universe   `yaml:"universe" json:"universe"`
	Backtest   Backtest   `yaml:"backtest" json:"backtest"`
	TValue     TValue     `yaml:"tvalue" json:"tvalue"`
	GridSearch GridSearch `yaml:"gridsearch" json:"gridsearch"`
	Validation Validation `yaml:"validation" json:"validation"`
}

type Meta struct {
	PortfolioID string `yaml:"portfolio_id" json:"portfolio_id"`
	Version     string `yaml:"version" json:"version"`
	Timezone    string `yaml:"timezone" json:"timezone"`
}

// Universe names the assets and their base weights. Weights need not sum
// to 1; the simulator normalizes.
type Universe struct {
	Assets []Asset `yaml:"assets" json:"assets"`
}

type Asset struct {
	Code   string  `yaml:"code" json:"code"`
	Name   string  `yaml:"name" json:"name"`
	Weight float64 `yaml:"weight" json:"weight"`
	// Role marks buffer assets for the tvalue strategy: "risk" (default),
	// "bond" or "cash".
	Role string `yaml:"role" json:"role"`
}

type Backtest struct {
	Start          string  `yaml:"start" json:"start"` // YYYY-MM-DD, empty means earliest
	End            string  `yaml:"end" json:"end"`     // YYYY-MM-DD, empty means latest
	AdjustMode     string  `yaml:"adjust_mode" json:"adjust_mode"` // "qfq" or "none"
	Rebalance      string  `yaml:"rebalance" json:"rebalance"`     // NONE, M, Q, A
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	RiskFreeAnnual float64 `yaml:"risk_free_annual" json:"risk_free_annual"`
	TradingDays    int     `yaml:"trading_days" json:"trading_days"`
	// MissingFactorAsRaw treats assets without adjustment factors as
	// already adjusted instead of failing the run.
	MissingFactorAsRaw bool `yaml:"missing_factor_as_raw" json:"missing_factor_as_raw"`
}

type TValue struct {
	Short             int     `yaml:"short" json:"short"`
	Mid               int     `yaml:"mid" json:"mid"`
	Long              int     `yaml:"long" json:"long"`
	ConfirmDays       int     `yaml:"confirm_days" json:"confirm_days"`
	CooldownDays      int     `yaml:"cooldown_days" json:"cooldown_days"`
	FastMoveWindow    int     `yaml:"fast_move_window" json:"fast_move_window"`
	FastMoveThreshold float64 `yaml:"fast_move_threshold" json:"fast_move_threshold"`
}

type GridSearch struct {
	Short   []int `yaml:"short" json:"short"`
	Mid     []int `yaml:"mid" json:"mid"`
	Long    []int `yaml:"long" json:"long"`
	Workers int   `yaml:"workers" json:"workers"`
}

// Validation holds the data-quality thresholds applied before a run.
type Validation struct {
	// MaxAbsReturn flags absolute daily moves above this fraction.
	MaxAbsReturn float64 `yaml:"max_abs_return" json:"max_abs_return"`
	// RobustZThreshold flags returns whose MAD-based z-score exceeds this.
	RobustZThreshold float64 `yaml:"robust_z_threshold" json:"robust_z_threshold"`
	// CrossMeanDiffMax and CrossCorrMin gate cross-source comparison.
	CrossMeanDiffMax float64 `yaml:"cross_mean_diff_max" json:"cross_mean_diff_max"`
	CrossCorrMin     float64 `yaml:"cross_corr_min" json:"cross_corr_min"`
}
