package strategyconfig

import (
	"fmt"
	"time"
)

// ValidationError is a constraint violation that must stop the run.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints.
func Validate(cfg *Config) error {
	if cfg.Meta.PortfolioID == "" {
		return ValidationError{"meta.portfolio_id", "required"}
	}

	if len(cfg.Universe.Assets) == 0 {
		return ValidationError{"universe.assets", "at least one asset required"}
	}
	seen := make(map[string]bool, len(cfg.Universe.Assets))
	weightSum := 0.0
	for i, a := range cfg.Universe.Assets {
		field := fmt.Sprintf("universe.assets[%d]", i)
		if a.Code == "" {
			return ValidationError{field + ".code", "required"}
		}
		if seen[a.Code] {
			return ValidationError{field + ".code", "duplicate code " + a.Code}
		}
		seen[a.Code] = true
		if a.Weight < 0 {
			return ValidationError{field + ".weight", "must be >= 0"}
		}
		switch a.Role {
		case "", "risk", "bond", "cash":
		default:
			return ValidationError{field + ".role", "must be risk, bond or cash"}
		}
		weightSum += a.Weight
	}
	if weightSum == 0 {
		return ValidationError{"universe.assets", "weights sum to zero"}
	}

	if err := validateDate(cfg.Backtest.Start); err != nil {
		return ValidationError{"backtest.start", err.Error()}
	}
	if err := validateDate(cfg.Backtest.End); err != nil {
		return ValidationError{"backtest.end", err.Error()}
	}
	switch cfg.Backtest.AdjustMode {
	case "qfq", "none":
	default:
		return ValidationError{"backtest.adjust_mode", "must be qfq or none"}
	}
	switch cfg.Backtest.Rebalance {
	case "NONE", "M", "Q", "A":
	default:
		return ValidationError{"backtest.rebalance", "must be NONE, M, Q or A"}
	}
	if cfg.Backtest.InitialCapital <= 0 {
		return ValidationError{"backtest.initial_capital", "must be > 0"}
	}
	if cfg.Backtest.TradingDays <= 0 {
		return ValidationError{"backtest.trading_days", "must be > 0"}
	}

	if cfg.TValue.Short != 0 || cfg.TValue.Mid != 0 || cfg.TValue.Long != 0 {
		if !(cfg.TValue.Short > 0 && cfg.TValue.Short < cfg.TValue.Mid && cfg.TValue.Mid < cfg.TValue.Long) {
			return ValidationError{"tvalue", "windows must be strictly increasing and positive"}
		}
	}
	if cfg.TValue.ConfirmDays < 0 || cfg.TValue.CooldownDays < 0 {
		return ValidationError{"tvalue", "confirm_days and cooldown_days must be >= 0"}
	}

	if cfg.GridSearch.Workers < 0 {
		return ValidationError{"gridsearch.workers", "must be >= 0"}
	}
	for _, w := range append(append(append([]int{}, cfg.GridSearch.Short...), cfg.GridSearch.Mid...), cfg.GridSearch.Long...) {
		if w <= 0 {
			return ValidationError{"gridsearch", "windows must be > 0"}
		}
	}

	if cfg.Validation.MaxAbsReturn <= 0 {
		return ValidationError{"validation.max_abs_return", "must be > 0"}
	}
	if cfg.Validation.RobustZThreshold <= 0 {
		return ValidationError{"validation.robust_z_threshold", "must be > 0"}
	}
	if cfg.Validation.CrossCorrMin < -1 || cfg.Validation.CrossCorrMin > 1 {
		return ValidationError{"validation.cross_corr_min", "must be in [-1, 1]"}
	}

	return nil
}

// Weights extracts the code-to-weight map from the universe.
func (c *Config) Weights() map[string]float64 {
	out := make(map[string]float64, len(c.Universe.Assets))
	for _, a := range c.Universe.Assets {
		out[a.Code] = a.Weight
	}
	return out
}

// Codes returns the asset codes in file order.
func (c *Config) Codes() []string {
	out := make([]string, 0, len(c.Universe.Assets))
	for _, a := range c.Universe.Assets {
		out = append(out, a.Code)
	}
	return out
}

// BufferCodes returns the bond and cash codes, empty when no asset carries
// that role.
func (c *Config) BufferCodes() (bond, cash string) {
	for _, a := range c.Universe.Assets {
		switch a.Role {
		case "bond":
			bond = a.Code
		case "cash":
			cash = a.Code
		}
	}
	return bond, cash
}

func validateDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Errorf("must be YYYY-MM-DD: %w", err)
	}
	return nil
}
