package backtest

import (
	"fmt"
	"time"

	"github.com/hxlyu/allweather/internal/contracts"
)

// simState is the simulator's explicit state, so that rebalance-on-first-date
// and rebalance-on-last-date behavior is unambiguous rather than inferred
// from loop position.
type simState int

const (
	stateInit simState = iota
	stateHold
	stateRebalance
	stateTerminal
)

// Directive instructs the simulator to restore the given target weights on
// a specific aligned date. Fixed-frequency policies emit directives with the
// base weights; signal strategies emit recomputed weights.
type Directive struct {
	Date    time.Time
	Weights contracts.Weights
	Reason  string
}

// RebalanceEvent records one applied directive, after normalization.
type RebalanceEvent struct {
	Date    time.Time
	Reason  string
	Weights contracts.Weights // normalized weights actually applied
}

// HoldingsPoint is the per-asset value breakdown on one date.
type HoldingsPoint struct {
	Date   time.Time
	Values map[string]float64
}

// Result is the immutable output of one simulation run.
type Result struct {
	Curve    []contracts.ValuePoint
	Holdings []HoldingsPoint
	Events   []RebalanceEvent
}

// Simulate runs a fixed-weight simulation: initial allocation at the first
// aligned date, holdings untouched between rebalances, and the base weights
// restored at each scheduled date. Pure function of its inputs.
func Simulate(frame *Frame, weights contracts.Weights, capital float64, rebalances []time.Time) (*Result, error) {
	directives := make([]Directive, 0, len(rebalances))
	for _, d := range rebalances {
		directives = append(directives, Directive{Date: d, Weights: weights, Reason: "fixed_rebalance"})
	}
	return SimulateDirectives(frame, weights, capital, directives)
}

// SimulateDirectives runs a simulation whose rebalance dates and target
// weights come from an arbitrary directive list (ordered by date, dates must
// exist in the frame). Directives on the first aligned date are ignored; the
// initial allocation already establishes those weights.
func SimulateDirectives(frame *Frame, initial contracts.Weights, capital float64, directives []Directive) (*Result, error) {
	if capital <= 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("initial capital %v is not positive", capital)}
	}

	norm, err := normalizeWeights(initial)
	if err != nil {
		return nil, err
	}
	for code := range norm {
		if _, ok := frame.Closes[code]; !ok {
			return nil, &ConfigurationError{Code: code, Reason: "no price on the initial date"}
		}
	}
	for _, d := range directives {
		dn, err := normalizeWeights(d.Weights)
		if err != nil {
			return nil, err
		}
		for code := range dn {
			if _, ok := frame.Closes[code]; !ok {
				return nil, &ConfigurationError{Code: code, Reason: "rebalance target has no aligned prices"}
			}
		}
	}

	byDate := make(map[time.Time]Directive, len(directives))
	for _, d := range directives {
		byDate[contracts.Day(d.Date)] = d
	}

	// Unit holdings per asset; fractional units permitted.
	holdings := make(map[string]float64, len(frame.Codes))

	res := &Result{
		Curve:    make([]contracts.ValuePoint, 0, frame.Len()),
		Holdings: make([]HoldingsPoint, 0, frame.Len()),
	}

	state := stateInit
	for i, date := range frame.Dates {
		switch state {
		case stateInit:
			for code, w := range norm {
				holdings[code] = capital * w / frame.Price(code, i)
			}
			state = stateHold

		case stateHold:
			if dir, ok := byDate[date]; ok {
				state = stateRebalance
				// Value under current holdings, then reallocate at this
				// date's prices. A rebalance never creates or destroys value.
				total := markToMarket(frame, holdings, i)
				applied, _ := normalizeWeights(dir.Weights)
				for code := range holdings {
					delete(holdings, code)
				}
				for code, w := range applied {
					holdings[code] = total * w / frame.Price(code, i)
				}
				res.Events = append(res.Events, RebalanceEvent{
					Date:    date,
					Reason:  dir.Reason,
					Weights: applied,
				})
				state = stateHold
			}
		}

		total := markToMarket(frame, holdings, i)
		res.Curve = append(res.Curve, contracts.ValuePoint{Date: date, Value: total})

		values := make(map[string]float64, len(holdings))
		for code, units := range holdings {
			values[code] = units * frame.Price(code, i)
		}
		res.Holdings = append(res.Holdings, HoldingsPoint{Date: date, Values: values})
	}
	// Terminal: state is discarded, only the curve and its traces survive.
	state = stateTerminal
	_ = state

	return res, nil
}

// markToMarket values the current holdings at date index i.
func markToMarket(frame *Frame, holdings map[string]float64, i int) float64 {
	total := 0.0
	for code, units := range holdings {
		total += units * frame.Price(code, i)
	}
	return total
}

// normalizeWeights validates a weight set and scales it to sum to 1, so that
// weight sets that do not sum exactly to 1 introduce neither leverage nor a
// cash drag.
func normalizeWeights(w contracts.Weights) (contracts.Weights, error) {
	if len(w) == 0 {
		return nil, &ConfigurationError{Reason: "empty weight set"}
	}

	sum := 0.0
	for code, v := range w {
		if v < 0 {
			return nil, &ConfigurationError{Code: code, Reason: fmt.Sprintf("negative weight %v", v)}
		}
		sum += v
	}
	if sum == 0 {
		return nil, &ConfigurationError{Reason: "weights sum to zero"}
	}

	norm := make(contracts.Weights, len(w))
	for code, v := range w {
		if v == 0 {
			continue
		}
		norm[code] = v / sum
	}
	return norm, nil
}
