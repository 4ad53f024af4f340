package backtest

import (
	"time"

	"github.com/hxlyu/allweather/internal/contracts"
	"github.com/hxlyu/allweather/internal/metrics"
	"github.com/hxlyu/allweather/internal/strategy"
	"github.com/hxlyu/allweather/pkg/logger"
)

// Strategy names accepted by RunConfig.
const (
	StrategyFixed  = "fixed"
	StrategyTValue = "tvalue"
)

// RunConfig describes one full simulation request.
type RunConfig struct {
	// Policy drives fixed-frequency rebalancing. Ignored by the tvalue
	// strategy, which rebalances on its own signals.
	Policy   Policy
	Strategy string // StrategyFixed or StrategyTValue; empty means fixed

	Capital     float64
	RiskFree    float64 // annual risk-free rate for the Sharpe ratio
	TradingDays int     // 0 means metrics.DefaultTradingDays

	Weights contracts.Weights
	TValue  strategy.Params // used when Strategy == StrategyTValue
}

// RunResult bundles the aligned frame, the simulation traces and the
// summary statistics of one run.
type RunResult struct {
	Frame    *Frame
	Curve    []contracts.ValuePoint
	Holdings []HoldingsPoint
	Events   []RebalanceEvent
	Metrics  *metrics.Record
}

// Engine wires alignment, scheduling, simulation and metrics into one call.
type Engine struct {
	log *logger.Logger
}

func NewEngine(log *logger.Logger) *Engine {
	return &Engine{log: log}
}

// Run aligns the universe, derives the rebalance directives for the chosen
// strategy, simulates and computes metrics.
func (e *Engine) Run(u contracts.Universe, cfg RunConfig) (*RunResult, error) {
	frame, err := Align(u)
	if err != nil {
		return nil, err
	}

	e.log.WithFields(map[string]interface{}{
		"assets": len(frame.Codes),
		"dates":  frame.Len(),
		"start":  frame.Dates[0].Format("2006-01-02"),
		"end":    frame.Dates[frame.Len()-1].Format("2006-01-02"),
	}).Debug("universe aligned")

	directives, err := e.directives(frame, cfg)
	if err != nil {
		return nil, err
	}

	sim, err := SimulateDirectives(frame, cfg.Weights, cfg.Capital, directives)
	if err != nil {
		return nil, err
	}

	rec, err := metrics.Compute(sim.Curve, metrics.Options{
		RiskFree:    cfg.RiskFree,
		TradingDays: cfg.TradingDays,
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(map[string]interface{}{
		"total_return": rec.TotalReturn,
		"max_drawdown": rec.MaxDrawdown,
		"rebalances":   len(sim.Events),
	}).Info("simulation complete")

	return &RunResult{
		Frame:    frame,
		Curve:    sim.Curve,
		Holdings: sim.Holdings,
		Events:   sim.Events,
		Metrics:  rec,
	}, nil
}

// directives turns the configured strategy into a simulator directive list.
func (e *Engine) directives(frame *Frame, cfg RunConfig) ([]Directive, error) {
	switch cfg.Strategy {
	case "", StrategyFixed:
		dates := ScheduleRebalances(frame.Dates, cfg.Policy)
		out := make([]Directive, 0, len(dates))
		for _, d := range dates {
			out = append(out, Directive{Date: d, Weights: cfg.Weights, Reason: "fixed_rebalance"})
		}
		return out, nil

	case StrategyTValue:
		changes, err := strategy.TValue(frame.Dates, frame.Closes, cfg.Weights, cfg.TValue)
		if err != nil {
			return nil, err
		}
		out := make([]Directive, 0, len(changes))
		for _, c := range changes {
			out = append(out, Directive{Date: c.Date, Weights: c.Weights, Reason: c.Reason})
		}
		return out, nil
	}

	return nil, &ConfigurationError{Reason: "unknown strategy " + cfg.Strategy}
}

// TradingDates returns a copy of the aligned calendar for callers that need
// it without the rest of the frame.
func (f *Frame) TradingDates() []time.Time {
	dates := make([]time.Time, len(f.Dates))
	copy(dates, f.Dates)
	return dates
}
