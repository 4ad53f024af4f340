// Package report writes run results to files: a markdown summary plus CSV
// exports of the curve, holdings, rebalance events and grid rows.
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hxlyu/allweather/internal/backtest"
	"github.com/hxlyu/allweather/internal/metrics"
)

// Markdown renders the run summary.
func Markdown(res *backtest.RunResult, portfolioID string) string {
	rec := res.Metrics

	var b strings.Builder
	fmt.Fprintf(&b, "# Backtest Report: %s\n\n", portfolioID)
	fmt.Fprintf(&b, "Period: %s to %s (%d trading days)\n\n",
		rec.Start.Format("2006-01-02"), rec.End.Format("2006-01-02"), rec.Periods+1)

	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total return | %.2f%% |\n", rec.TotalReturn*100)
	fmt.Fprintf(&b, "| Annualized return | %.2f%% |\n", rec.AnnualizedReturn*100)
	fmt.Fprintf(&b, "| Annualized volatility | %.2f%% |\n", rec.AnnualizedVolatility*100)
	fmt.Fprintf(&b, "| Sharpe ratio | %s |\n", formatSharpe(rec.SharpeRatio))
	fmt.Fprintf(&b, "| Max drawdown | %.2f%% (%s to %s) |\n",
		rec.MaxDrawdown*100,
		rec.MaxDrawdownStart.Format("2006-01-02"),
		rec.MaxDrawdownEnd.Format("2006-01-02"))
	fmt.Fprintf(&b, "| Rebalances | %d |\n", len(res.Events))

	if len(res.Events) > 0 {
		b.WriteString("\n## Rebalances\n\n| Date | Reason | Weights |\n|---|---|---|\n")
		for _, ev := range res.Events {
			fmt.Fprintf(&b, "| %s | %s | %s |\n",
				ev.Date.Format("2006-01-02"), ev.Reason, formatWeights(ev.Weights))
		}
	}

	return b.String()
}

// WriteMarkdown writes the summary under dir and returns the path.
func WriteMarkdown(res *backtest.RunResult, portfolioID, dir string) (string, error) {
	rec := res.Metrics
	name := fmt.Sprintf("%s_%s_%s.md",
		portfolioID, rec.Start.Format("20060102"), rec.End.Format("20060102"))
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(Markdown(res, portfolioID)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// formatSharpe keeps the degenerate values readable in a table.
func formatSharpe(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return fmt.Sprintf("%.2f", v)
}

func formatWeights(weights map[string]float64) string {
	codes := make([]string, 0, len(weights))
	for code := range weights {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		parts = append(parts, fmt.Sprintf("%s %.1f%%", code, weights[code]*100))
	}
	return strings.Join(parts, ", ")
}

// SharpeValue is re-exported for the CLI's plain-text output.
func SharpeValue(rec *metrics.Record) string {
	return formatSharpe(rec.SharpeRatio)
}
