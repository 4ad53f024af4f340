package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxlyu/allweather/internal/contracts"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func curveOf(values ...float64) []contracts.ValuePoint {
	out := make([]contracts.ValuePoint, len(values))
	for i, v := range values {
		out[i] = contracts.ValuePoint{Date: day(i + 1), Value: v}
	}
	return out
}

func TestReturns(t *testing.T) {
	got := Returns(curveOf(100, 110, 99))
	require.Len(t, got, 2)
	assert.InDelta(t, 0.10, got[0], 1e-12)
	assert.InDelta(t, -0.10, got[1], 1e-12)
}

func TestReturnsZeroPreviousValue(t *testing.T) {
	got := Returns(curveOf(0, 50))
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0])
}

func TestComputeInsufficientData(t *testing.T) {
	_, err := Compute(curveOf(100), Options{})
	var insufficientErr *InsufficientDataError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, 1, insufficientErr.Points)
}

func TestComputeTotalReturnRoundTrip(t *testing.T) {
	curve := curveOf(10000, 10250, 9750, 11500)

	rec, err := Compute(curve, Options{})
	require.NoError(t, err)

	// Total return equals last/first - 1 exactly.
	assert.Equal(t, curve[3].Value/curve[0].Value-1, rec.TotalReturn)
	assert.InDelta(t, 0.15, rec.TotalReturn, 1e-12)
	assert.Equal(t, 3, rec.Periods)
}

func TestComputeAnnualization(t *testing.T) {
	// 252 periods of flat growth to +10%: annualized equals total.
	values := make([]float64, 253)
	for i := range values {
		values[i] = 10000 * math.Pow(1.10, float64(i)/252)
	}

	rec, err := Compute(curveOf(values...), Options{})
	require.NoError(t, err)
	assert.InDelta(t, 0.10, rec.AnnualizedReturn, 1e-9)
}

func TestComputeMaxDrawdown(t *testing.T) {
	// Worked example: peak 10250 on day 2, trough 9750 on day 3.
	rec, err := Compute(curveOf(10000, 10250, 9750, 11500), Options{})
	require.NoError(t, err)

	assert.InDelta(t, -0.04878, rec.MaxDrawdown, 1e-5)
	assert.Equal(t, day(2), rec.MaxDrawdownStart)
	assert.Equal(t, day(3), rec.MaxDrawdownEnd)
}

func TestMaxDrawdownBound(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		flat   bool
	}{
		{name: "monotonic rise", values: []float64{1, 2, 3, 4}, flat: true},
		{name: "flat curve", values: []float64{5, 5, 5}, flat: true},
		{name: "single dip", values: []float64{10, 8, 12}, flat: false},
		{name: "ends at trough", values: []float64{10, 12, 6}, flat: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Compute(curveOf(tt.values...), Options{})
			require.NoError(t, err)

			assert.LessOrEqual(t, rec.MaxDrawdown, 0.0)
			if tt.flat {
				assert.Equal(t, 0.0, rec.MaxDrawdown)
			} else {
				assert.Less(t, rec.MaxDrawdown, 0.0)
			}
		})
	}
}

func TestMaxDrawdownFirstOccurrenceWins(t *testing.T) {
	// Two equal-depth drawdowns; the earlier pair must be reported.
	rec, err := Compute(curveOf(100, 50, 100, 50), Options{})
	require.NoError(t, err)

	assert.InDelta(t, -0.5, rec.MaxDrawdown, 1e-12)
	assert.Equal(t, day(1), rec.MaxDrawdownStart)
	assert.Equal(t, day(2), rec.MaxDrawdownEnd)
}

func TestSharpeRatio(t *testing.T) {
	rec, err := Compute(curveOf(100, 101, 103, 102, 105), Options{RiskFree: 0.02})
	require.NoError(t, err)

	require.Greater(t, rec.AnnualizedVolatility, 0.0)
	want := (rec.AnnualizedReturn - 0.02) / rec.AnnualizedVolatility
	assert.Equal(t, want, rec.SharpeRatio)
}

func TestSharpeRatioZeroVolatility(t *testing.T) {
	// Constant positive growth has zero dispersion only if every return is
	// identical; a flat curve is the simplest such case.
	rec, err := Compute(curveOf(100, 100, 100), Options{})
	require.NoError(t, err)

	assert.Equal(t, 0.0, rec.AnnualizedVolatility)
	assert.True(t, math.IsNaN(rec.SharpeRatio), "zero excess over zero volatility is undefined")

	rec, err = Compute(curveOf(100, 100, 100), Options{RiskFree: 0.05})
	require.NoError(t, err)
	assert.True(t, math.IsInf(rec.SharpeRatio, -1))
}

func TestComputeRiskFreeDefaultsToZero(t *testing.T) {
	rec, err := Compute(curveOf(100, 102, 101, 104), Options{})
	require.NoError(t, err)
	assert.Equal(t, rec.AnnualizedReturn/rec.AnnualizedVolatility, rec.SharpeRatio)
}
