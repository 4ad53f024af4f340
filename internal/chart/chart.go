// Package chart renders the portfolio value curve as a PNG.
package chart

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/hxlyu/allweather/internal/backtest"
)

// RenderNAV draws the normalized value curve with the run's headline
// statistics in the title. Normalizing to 1.0 at the start keeps the chart
// comparable across capital settings.
func RenderNAV(res *backtest.RunResult, portfolioID string) ([]byte, error) {
	curve := res.Curve
	if len(curve) == 0 {
		return nil, fmt.Errorf("empty value curve")
	}

	values := make([]float64, len(curve))
	xLabels := make([]string, len(curve))
	base := curve[0].Value
	for i, p := range curve {
		values[i] = p.Value / base
		xLabels[i] = xLabel(p.Date, len(curve))
	}

	yMin, yMax := values[0], values[0]
	for _, v := range values {
		if v < yMin {
			yMin = v
		}
		if v > yMax {
			yMax = v
		}
	}
	padding := (yMax - yMin) * 0.05
	if padding == 0 {
		padding = yMax * 0.05
	}
	yMin -= padding
	yMax += padding

	rec := res.Metrics
	title := fmt.Sprintf("%s NAV", portfolioID)
	subtitle := fmt.Sprintf("Return: %.2f%% | Annualized: %.2f%% | Sharpe: %.2f | MaxDD: %.2f%%",
		rec.TotalReturn*100, rec.AnnualizedReturn*100, rec.SharpeRatio, rec.MaxDrawdown*100)

	splitNum := 6
	if len(xLabels) <= 30 {
		splitNum = len(xLabels) / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(title+"\n"+subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("generate chart bytes: %w", err)
	}
	return buf, nil
}

// Save renders the NAV chart and writes it under dir.
func Save(res *backtest.RunResult, portfolioID, dir string) (string, error) {
	buf, err := RenderNAV(res, portfolioID)
	if err != nil {
		return "", err
	}

	rec := res.Metrics
	name := fmt.Sprintf("%s_%s_%s.png",
		portfolioID, rec.Start.Format("20060102"), rec.End.Format("20060102"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("write chart: %w", err)
	}
	return path, nil
}

// xLabel picks a label granularity that stays readable: day-level for
// short runs, month-level otherwise.
func xLabel(d time.Time, n int) string {
	if n <= 90 {
		return d.Format("01-02")
	}
	return d.Format("2006-01")
}
