// Package quality validates stored price series before they feed a
// backtest: calendar completeness, return anomalies and agreement with an
// independent second source.
package quality

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/hxlyu/allweather/internal/contracts"
	"github.com/hxlyu/allweather/pkg/logger"
)

// CalendarSource provides the exchange's open trading dates.
type CalendarSource interface {
	FetchTradeCalendar(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

// SecondSource provides independent closes for cross-validation.
type SecondSource interface {
	FetchPrices(ctx context.Context, tsCode string, from, to time.Time) ([]contracts.PricePoint, error)
}

// Config holds the validation thresholds.
type Config struct {
	// MaxAbsReturn flags any daily move larger than this fraction.
	MaxAbsReturn float64
	// RobustZThreshold flags returns whose MAD-based z-score exceeds this.
	RobustZThreshold float64
	// CrossMeanDiffMax is the tolerated mean absolute return difference
	// against the second source.
	CrossMeanDiffMax float64
	// CrossCorrMin is the minimum return correlation against the second
	// source.
	CrossCorrMin float64
}

// Validator runs the quality checks.
type Validator struct {
	calendar CalendarSource
	second   SecondSource
	config   Config
	logger   *logger.Logger
}

func NewValidator(calendar CalendarSource, second SecondSource, cfg Config, log *logger.Logger) *Validator {
	return &Validator{
		calendar: calendar,
		second:   second,
		config:   cfg,
		logger:   log.WithField("module", "quality"),
	}
}

// Anomaly is one suspicious daily return.
type Anomaly struct {
	Date    time.Time
	Return  float64
	ZScore  float64
	Reason  string // "abs_return" or "robust_z"
}

// Report is the outcome of validating one asset's series.
type Report struct {
	Code         string
	Points       int
	MissingDates []time.Time
	Completeness float64 // points / expected trading dates
	Anomalies    []Anomaly

	// Cross-source comparison; zero values when the second source had no
	// overlapping data.
	CrossChecked bool
	MeanAbsDiff  float64
	ReturnCorr   float64

	Passed bool
}

// Validate runs all checks on one asset's stored series.
func (v *Validator) Validate(ctx context.Context, code string, points []contracts.PricePoint) (*Report, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no stored data for %s", code)
	}

	report := &Report{Code: code, Points: len(points)}
	from, to := points[0].Date, points[len(points)-1].Date

	expected, err := v.calendar.FetchTradeCalendar(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("trade calendar: %w", err)
	}
	report.MissingDates = missingDates(points, expected)
	if len(expected) > 0 {
		report.Completeness = float64(len(expected)-len(report.MissingDates)) / float64(len(expected))
	} else {
		report.Completeness = 1
	}

	report.Anomalies = v.findAnomalies(points)

	secondPoints, err := v.second.FetchPrices(ctx, code, from, to)
	if err != nil {
		// The second source is advisory; its outage must not block a run.
		v.logger.WithError(err).WithField("code", code).Warn("Second source unavailable")
	} else {
		v.crossValidate(report, points, secondPoints)
	}

	report.Passed = len(report.MissingDates) == 0 &&
		len(report.Anomalies) == 0 &&
		(!report.CrossChecked ||
			(report.MeanAbsDiff <= v.config.CrossMeanDiffMax && report.ReturnCorr >= v.config.CrossCorrMin))

	v.logger.WithFields(map[string]interface{}{
		"code":         code,
		"completeness": report.Completeness,
		"anomalies":    len(report.Anomalies),
		"passed":       report.Passed,
	}).Info("Validation done")

	return report, nil
}

// missingDates returns the expected trading dates absent from the series.
func missingDates(points []contracts.PricePoint, expected []time.Time) []time.Time {
	have := make(map[time.Time]bool, len(points))
	for _, p := range points {
		have[contracts.Day(p.Date)] = true
	}

	var missing []time.Time
	for _, d := range expected {
		if !have[contracts.Day(d)] {
			missing = append(missing, contracts.Day(d))
		}
	}
	return missing
}

// findAnomalies flags returns by absolute size and by robust z-score. The
// z-score uses the median absolute deviation rather than the standard
// deviation, so one genuine crash day does not inflate the yardstick and
// hide the rest.
func (v *Validator) findAnomalies(points []contracts.PricePoint) []Anomaly {
	if len(points) < 3 {
		return nil
	}

	returns := make([]float64, 0, len(points)-1)
	dates := make([]time.Time, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, points[i].Close/prev-1)
		dates = append(dates, points[i].Date)
	}
	if len(returns) < 2 {
		return nil
	}

	med := median(returns)
	deviations := make([]float64, len(returns))
	for i, r := range returns {
		deviations[i] = math.Abs(r - med)
	}
	mad := median(deviations)

	var anomalies []Anomaly
	for i, r := range returns {
		if math.Abs(r) > v.config.MaxAbsReturn {
			anomalies = append(anomalies, Anomaly{Date: dates[i], Return: r, Reason: "abs_return"})
			continue
		}
		if mad == 0 {
			continue
		}
		// 1.4826 scales MAD to the standard deviation of a normal sample.
		z := (r - med) / (1.4826 * mad)
		if math.Abs(z) > v.config.RobustZThreshold {
			anomalies = append(anomalies, Anomaly{Date: dates[i], Return: r, ZScore: z, Reason: "robust_z"})
		}
	}
	return anomalies
}

// crossValidate compares daily returns on the dates both sources cover.
// Returns, not levels: the primary series may be adjusted while the second
// source is raw, and returns agree between adjustment events.
func (v *Validator) crossValidate(report *Report, primary, second []contracts.PricePoint) {
	secondByDate := make(map[time.Time]float64, len(second))
	for _, p := range second {
		secondByDate[contracts.Day(p.Date)] = p.Close
	}

	var primaryReturns, secondReturns []float64
	for i := 1; i < len(primary); i++ {
		d, prevD := contracts.Day(primary[i].Date), contracts.Day(primary[i-1].Date)
		sc, ok := secondByDate[d]
		scPrev, okPrev := secondByDate[prevD]
		if !ok || !okPrev || primary[i-1].Close == 0 || scPrev == 0 {
			continue
		}
		primaryReturns = append(primaryReturns, primary[i].Close/primary[i-1].Close-1)
		secondReturns = append(secondReturns, sc/scPrev-1)
	}

	if len(primaryReturns) < 2 {
		return
	}

	sumDiff := 0.0
	for i := range primaryReturns {
		sumDiff += math.Abs(primaryReturns[i] - secondReturns[i])
	}

	report.CrossChecked = true
	report.MeanAbsDiff = sumDiff / float64(len(primaryReturns))
	report.ReturnCorr = stat.Correlation(primaryReturns, secondReturns, nil)
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
