// Package metrics derives risk/return statistics from a simulated portfolio
// value curve.
package metrics

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/hxlyu/allweather/internal/contracts"
)

// DefaultTradingDays is the trading-periods-per-year constant used to
// annualize returns and volatility.
const DefaultTradingDays = 252

// InsufficientDataError reports a value curve too short for any return
// computation.
type InsufficientDataError struct {
	Points int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("value curve has %d points, need at least 2", e.Points)
}

// Options configures a metrics computation.
type Options struct {
	// RiskFree is the annual risk-free rate used by the Sharpe ratio.
	RiskFree float64
	// TradingDays overrides DefaultTradingDays when positive.
	TradingDays int
}

// Record holds the summary statistics of one simulation run.
type Record struct {
	Start   time.Time
	End     time.Time
	Periods int // number of return periods, len(curve)-1

	TotalReturn          float64
	AnnualizedReturn     float64
	AnnualizedVolatility float64
	// SharpeRatio is ±Inf when volatility is exactly zero and the excess
	// return is nonzero, NaN when both are zero. Degenerate, not an error.
	SharpeRatio float64

	MaxDrawdown      float64 // ≤ 0, peak-to-trough fraction of the running peak
	MaxDrawdownStart time.Time
	MaxDrawdownEnd   time.Time
}

// Returns computes the period return series v_t/v_{t-1} - 1.
func Returns(curve []contracts.ValuePoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Value
		if prev == 0 {
			out[i-1] = 0
			continue
		}
		out[i-1] = curve[i].Value/prev - 1
	}
	return out
}

// Compute derives a Record from a value curve.
func Compute(curve []contracts.ValuePoint, opts Options) (*Record, error) {
	if len(curve) < 2 {
		return nil, &InsufficientDataError{Points: len(curve)}
	}

	tradingDays := opts.TradingDays
	if tradingDays <= 0 {
		tradingDays = DefaultTradingDays
	}

	returns := Returns(curve)
	n := len(returns)

	rec := &Record{
		Start:   curve[0].Date,
		End:     curve[len(curve)-1].Date,
		Periods: n,
	}

	rec.TotalReturn = curve[len(curve)-1].Value/curve[0].Value - 1
	rec.AnnualizedReturn = math.Pow(1+rec.TotalReturn, float64(tradingDays)/float64(n)) - 1

	// Sample standard deviation, annualized. A single return period has no
	// dispersion to measure.
	if n >= 2 {
		rec.AnnualizedVolatility = stat.StdDev(returns, nil) * math.Sqrt(float64(tradingDays))
	}

	excess := rec.AnnualizedReturn - opts.RiskFree
	switch {
	case rec.AnnualizedVolatility > 0:
		rec.SharpeRatio = excess / rec.AnnualizedVolatility
	case excess > 0:
		rec.SharpeRatio = math.Inf(1)
	case excess < 0:
		rec.SharpeRatio = math.Inf(-1)
	default:
		rec.SharpeRatio = math.NaN()
	}

	rec.MaxDrawdown, rec.MaxDrawdownStart, rec.MaxDrawdownEnd = maxDrawdown(curve)

	return rec, nil
}

// maxDrawdown finds the deepest peak-to-trough decline relative to the
// running peak. First occurrence wins on ties: the peak only advances on a
// strictly higher value and the drawdown only deepens on a strictly lower
// ratio.
func maxDrawdown(curve []contracts.ValuePoint) (float64, time.Time, time.Time) {
	peak := curve[0].Value
	peakDate := curve[0].Date

	maxDD := 0.0
	ddStart := curve[0].Date
	ddEnd := curve[0].Date

	for _, p := range curve[1:] {
		if p.Value > peak {
			peak = p.Value
			peakDate = p.Date
			continue
		}
		dd := p.Value/peak - 1
		if dd < maxDD {
			maxDD = dd
			ddStart = peakDate
			ddEnd = p.Date
		}
	}

	return maxDD, ddStart, ddEnd
}
