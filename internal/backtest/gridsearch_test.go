package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxlyu/allweather/internal/contracts"
	"github.com/hxlyu/allweather/internal/strategy"
)

func gridUniverse() contracts.Universe {
	var dates []time.Time
	for i := 0; i < 60; i++ {
		dates = append(dates, d(2024, 1, 2).AddDate(0, 0, i))
	}

	a := make([]float64, len(dates))
	b := make([]float64, len(dates))
	for i := range dates {
		a[i] = 100 + 0.5*float64(i)
		b[i] = 100.0
	}

	return contracts.Universe{
		"RISK": points(dates, a),
		"BOND": points(dates, b),
	}
}

func gridConfig() RunConfig {
	return RunConfig{
		Capital: 10000,
		Weights: contracts.Weights{"RISK": 0.6, "BOND": 0.4},
		TValue:  strategy.Params{BondCode: "BOND"},
	}
}

func TestGridSearchEnumerationOrder(t *testing.T) {
	eng := newTestEngine()

	rows, err := eng.GridSearch(gridUniverse(), gridConfig(), GridSpec{
		Short: []int{3, 5},
		Mid:   []int{10},
		Long:  []int{20, 30},
	})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	want := [][3]int{{3, 10, 20}, {3, 10, 30}, {5, 10, 20}, {5, 10, 30}}
	for i, w := range want {
		assert.Equal(t, w[0], rows[i].Short)
		assert.Equal(t, w[1], rows[i].Mid)
		assert.Equal(t, w[2], rows[i].Long)
	}
}

func TestGridSearchSkipsFailedCombinations(t *testing.T) {
	eng := newTestEngine()

	// 30/10/20 violates window ordering; the other combination is fine.
	rows, err := eng.GridSearch(gridUniverse(), gridConfig(), GridSpec{
		Short: []int{3, 30},
		Mid:   []int{10},
		Long:  []int{20},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Empty(t, rows[0].Err)
	require.NotNil(t, rows[0].Metrics)

	assert.NotEmpty(t, rows[1].Err)
	assert.Nil(t, rows[1].Metrics)
}

func TestGridSearchWorkersDeterministic(t *testing.T) {
	eng := newTestEngine()
	spec := GridSpec{
		Short: []int{3, 4, 5},
		Mid:   []int{10, 12},
		Long:  []int{20, 25},
	}

	seq, err := eng.GridSearch(gridUniverse(), gridConfig(), spec)
	require.NoError(t, err)

	spec.Workers = 4
	par, err := eng.GridSearch(gridUniverse(), gridConfig(), spec)
	require.NoError(t, err)

	require.Equal(t, len(seq), len(par))
	for i := range seq {
		assert.Equal(t, seq[i].Short, par[i].Short)
		assert.Equal(t, seq[i].Err, par[i].Err)
		if seq[i].Metrics != nil {
			require.NotNil(t, par[i].Metrics)
			assert.Equal(t, seq[i].Metrics.TotalReturn, par[i].Metrics.TotalReturn)
		}
	}
}

func TestGridSearchEmptyAxis(t *testing.T) {
	eng := newTestEngine()

	_, err := eng.GridSearch(gridUniverse(), gridConfig(), GridSpec{
		Short: []int{3},
		Mid:   nil,
		Long:  []int{20},
	})
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
