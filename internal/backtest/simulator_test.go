package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxlyu/allweather/internal/contracts"
)

func twoAssetFrame(t *testing.T) *Frame {
	t.Helper()
	dates := []time.Time{d(2024, 1, 2), d(2024, 1, 3), d(2024, 1, 4), d(2024, 1, 5)}
	frame, err := Align(contracts.Universe{
		"A": points(dates, []float64{10, 11, 9, 12}),
		"B": points(dates, []float64{100, 95, 105, 110}),
	})
	require.NoError(t, err)
	return frame
}

func TestSimulateBuyAndHold(t *testing.T) {
	frame := twoAssetFrame(t)
	weights := contracts.Weights{"A": 0.5, "B": 0.5}

	res, err := Simulate(frame, weights, 10000, nil)
	require.NoError(t, err)

	// 5000/10 = 500 units of A, 5000/100 = 50 units of B.
	want := []float64{10000, 10250, 9750, 11500}
	require.Len(t, res.Curve, len(want))
	for i, v := range want {
		assert.InDelta(t, v, res.Curve[i].Value, 1e-9, "curve point %d", i)
	}
	assert.Empty(t, res.Events)

	// Per-asset traces recompose to the curve.
	for i, h := range res.Holdings {
		sum := 0.0
		for _, v := range h.Values {
			sum += v
		}
		assert.InDelta(t, res.Curve[i].Value, sum, 1e-9)
	}
}

func TestSimulateWeightNormalization(t *testing.T) {
	frame := twoAssetFrame(t)

	exact, err := Simulate(frame, contracts.Weights{"A": 0.5, "B": 0.5}, 10000, nil)
	require.NoError(t, err)

	// Weights 2:2 normalize to the same 50/50 allocation.
	scaled, err := Simulate(frame, contracts.Weights{"A": 2, "B": 2}, 10000, nil)
	require.NoError(t, err)

	for i := range exact.Curve {
		assert.InDelta(t, exact.Curve[i].Value, scaled.Curve[i].Value, 1e-9)
	}
}

func TestSimulateRebalancePreservesValue(t *testing.T) {
	frame := twoAssetFrame(t)
	weights := contracts.Weights{"A": 0.5, "B": 0.5}
	rebalance := []time.Time{d(2024, 1, 4)}

	hold, err := Simulate(frame, weights, 10000, nil)
	require.NoError(t, err)
	reb, err := Simulate(frame, weights, 10000, rebalance)
	require.NoError(t, err)

	// A rebalance reallocates at that date's prices without creating or
	// destroying value, so the curve matches up to and including the
	// rebalance date.
	assert.InDelta(t, hold.Curve[2].Value, reb.Curve[2].Value, 1e-9)

	require.Len(t, reb.Events, 1)
	assert.Equal(t, d(2024, 1, 4), reb.Events[0].Date)
	assert.Equal(t, "fixed_rebalance", reb.Events[0].Reason)
	assert.InDelta(t, 0.5, reb.Events[0].Weights["A"], 1e-12)

	// After it, drift is reset: half of 9750 back into each asset.
	// A: 4875/9*12 + B: 4875/105*110 ≈ 11607.14.
	assert.InDelta(t, 4875.0/9*12+4875.0/105*110, reb.Curve[3].Value, 1e-9)
}

func TestSimulateDirectiveWeights(t *testing.T) {
	frame := twoAssetFrame(t)

	res, err := SimulateDirectives(frame, contracts.Weights{"A": 0.5, "B": 0.5}, 10000, []Directive{
		{Date: d(2024, 1, 3), Weights: contracts.Weights{"B": 1}, Reason: "fast_down"},
	})
	require.NoError(t, err)

	// All 10250 into B at 95; the A position is closed.
	assert.InDelta(t, 10250, res.Curve[1].Value, 1e-9)
	assert.NotContains(t, res.Holdings[1].Values, "A")
	assert.InDelta(t, 10250.0/95*105, res.Curve[2].Value, 1e-9)
}

func TestSimulateConfigurationErrors(t *testing.T) {
	frame := twoAssetFrame(t)

	tests := []struct {
		name       string
		weights    contracts.Weights
		capital    float64
		directives []Directive
	}{
		{name: "zero capital", weights: contracts.Weights{"A": 1}, capital: 0},
		{name: "negative capital", weights: contracts.Weights{"A": 1}, capital: -5},
		{name: "empty weights", weights: contracts.Weights{}, capital: 10000},
		{name: "negative weight", weights: contracts.Weights{"A": 0.5, "B": -0.5}, capital: 10000},
		{name: "zero sum", weights: contracts.Weights{"A": 0, "B": 0}, capital: 10000},
		{name: "unknown code", weights: contracts.Weights{"C": 1}, capital: 10000},
		{
			name:    "directive with unknown code",
			weights: contracts.Weights{"A": 1},
			capital: 10000,
			directives: []Directive{
				{Date: d(2024, 1, 3), Weights: contracts.Weights{"C": 1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SimulateDirectives(frame, tt.weights, tt.capital, tt.directives)
			var cfgErr *ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestSimulateZeroWeightDropped(t *testing.T) {
	frame := twoAssetFrame(t)

	res, err := Simulate(frame, contracts.Weights{"A": 1, "B": 0}, 10000, nil)
	require.NoError(t, err)
	assert.NotContains(t, res.Holdings[0].Values, "B")
	assert.InDelta(t, 10000.0/10*12, res.Curve[3].Value, 1e-9)
}
