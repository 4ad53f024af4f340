// Package adjust converts raw close prices plus daily adjustment factors
// into forward-adjusted ("qfq") series. Forward adjustment anchors the most
// recent price to its raw quoted value and scales history proportionally, so
// distribution and split discontinuities disappear without changing the
// current price.
package adjust

import (
	"fmt"
	"math"
	"time"

	"github.com/hxlyu/allweather/internal/contracts"
)

// Mode selects the price adjustment convention.
type Mode string

const (
	// ModeNone passes raw closes through unmodified.
	ModeNone Mode = "none"
	// ModeQFQ applies forward adjustment anchored on the last date of the range.
	ModeQFQ Mode = "qfq"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNone, ModeQFQ:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown adjust mode %q (want qfq or none)", s)
}

// Options configures an adjustment run.
type Options struct {
	Mode Mode

	// MissingAsRaw treats an asset with no published factors as unadjusted
	// (factor 1.0) instead of failing. Off unless explicitly configured.
	MissingAsRaw bool
}

// AdjustmentError reports an unusable or absent adjustment factor.
type AdjustmentError struct {
	Code   string
	Date   time.Time
	Reason string
}

func (e *AdjustmentError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("adjust %s: %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("adjust %s at %s: %s", e.Code, e.Date.Format("2006-01-02"), e.Reason)
}

// FillFactors maps the sparse factor table onto the close-price date axis,
// carrying the last known factor forward and filling any leading gap
// backward from the earliest known factor. It returns a new slice, one
// factor per date, and never mutates its inputs. A date axis with zero
// known factors yields all-NaN output.
func FillFactors(dates []time.Time, factors []contracts.FactorPoint) []float64 {
	byDate := make(map[time.Time]float64, len(factors))
	for _, f := range factors {
		byDate[contracts.Day(f.Date)] = f.Factor
	}

	filled := make([]float64, len(dates))
	for i, d := range dates {
		if v, ok := byDate[contracts.Day(d)]; ok {
			filled[i] = v
		} else {
			filled[i] = math.NaN()
		}
	}

	// Forward fill
	last := math.NaN()
	for i := range filled {
		if !math.IsNaN(filled[i]) {
			last = filled[i]
		} else if !math.IsNaN(last) {
			filled[i] = last
		}
	}

	// Backward fill the leading gap
	next := math.NaN()
	for i := len(filled) - 1; i >= 0; i-- {
		if !math.IsNaN(filled[i]) {
			next = filled[i]
		} else if !math.IsNaN(next) {
			filled[i] = next
		}
	}

	return filled
}

// Apply produces the adjusted close series for one asset. Closes must be
// ordered by date ascending with unique dates. The result is a new series;
// inputs are never mutated.
func Apply(code string, closes []contracts.PricePoint, factors []contracts.FactorPoint, opts Options) ([]contracts.PricePoint, error) {
	if len(closes) == 0 {
		return nil, &AdjustmentError{Code: code, Reason: "empty close series"}
	}

	if opts.Mode == ModeNone {
		out := make([]contracts.PricePoint, len(closes))
		copy(out, closes)
		return out, nil
	}

	dates := make([]time.Time, len(closes))
	for i, p := range closes {
		dates[i] = p.Date
	}

	filled := FillFactors(dates, factors)
	if math.IsNaN(filled[len(filled)-1]) {
		// No known factor anywhere in the range.
		if !opts.MissingAsRaw {
			return nil, &AdjustmentError{Code: code, Reason: "no adjustment factors in range"}
		}
		for i := range filled {
			filled[i] = 1.0
		}
	}

	latest := filled[len(filled)-1]
	if latest <= 0 {
		return nil, &AdjustmentError{
			Code:   code,
			Date:   closes[len(closes)-1].Date,
			Reason: fmt.Sprintf("anchor factor %v is not positive", latest),
		}
	}

	out := make([]contracts.PricePoint, len(closes))
	for i, p := range closes {
		out[i] = contracts.PricePoint{
			Date: p.Date,
			// Round only at the point of producing the final series; this is
			// the interchange precision downstream consumers persist.
			Close: round3(p.Close * filled[i] / latest),
		}
	}
	return out, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
