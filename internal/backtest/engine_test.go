package backtest

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxlyu/allweather/internal/contracts"
	"github.com/hxlyu/allweather/pkg/logger"
)

func newTestEngine() *Engine {
	return NewEngine(logger.NewWriter(io.Discard, "error"))
}

func monthlyUniverse() contracts.Universe {
	// Two months of weekdays with mild drift, enough to schedule one
	// monthly rebalance.
	var dates []time.Time
	for day := d(2024, 1, 2); day.Before(d(2024, 3, 1)); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		dates = append(dates, day)
	}

	a := make([]float64, len(dates))
	b := make([]float64, len(dates))
	for i := range dates {
		a[i] = 10 + 0.05*float64(i)
		b[i] = 100 - 0.02*float64(i)
	}

	return contracts.Universe{
		"A": points(dates, a),
		"B": points(dates, b),
	}
}

func TestEngineRunFixed(t *testing.T) {
	eng := newTestEngine()

	res, err := eng.Run(monthlyUniverse(), RunConfig{
		Policy:  PolicyMonthly,
		Capital: 10000,
		Weights: contracts.Weights{"A": 0.5, "B": 0.5},
	})
	require.NoError(t, err)

	require.Len(t, res.Events, 1)
	assert.Equal(t, d(2024, 2, 1), res.Events[0].Date)
	assert.Equal(t, "fixed_rebalance", res.Events[0].Reason)

	require.NotNil(t, res.Metrics)
	assert.Equal(t, res.Curve[len(res.Curve)-1].Value/res.Curve[0].Value-1, res.Metrics.TotalReturn)
	assert.Equal(t, res.Frame.Len(), len(res.Curve))
}

func TestEngineRunDefaultsToFixed(t *testing.T) {
	eng := newTestEngine()

	withName, err := eng.Run(monthlyUniverse(), RunConfig{
		Policy: PolicyMonthly, Strategy: StrategyFixed,
		Capital: 10000, Weights: contracts.Weights{"A": 0.5, "B": 0.5},
	})
	require.NoError(t, err)

	unnamed, err := eng.Run(monthlyUniverse(), RunConfig{
		Policy:  PolicyMonthly,
		Capital: 10000, Weights: contracts.Weights{"A": 0.5, "B": 0.5},
	})
	require.NoError(t, err)

	assert.Equal(t, withName.Metrics.TotalReturn, unnamed.Metrics.TotalReturn)
}

func TestEngineRunUnknownStrategy(t *testing.T) {
	eng := newTestEngine()

	_, err := eng.Run(monthlyUniverse(), RunConfig{
		Strategy: "momentum",
		Capital:  10000, Weights: contracts.Weights{"A": 0.5, "B": 0.5},
	})
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestEngineRunAlignmentErrorPropagates(t *testing.T) {
	eng := newTestEngine()

	u := contracts.Universe{
		"A": points([]time.Time{d(2024, 1, 2)}, []float64{1}),
		"B": points([]time.Time{d(2024, 1, 3)}, []float64{2}),
	}
	_, err := eng.Run(u, RunConfig{Capital: 10000, Weights: contracts.Weights{"A": 1}})
	var alignErr *AlignmentError
	assert.ErrorAs(t, err, &alignErr)
}
