package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/hxlyu/allweather/internal/backtest"
)

// WriteCurveCSV writes the value curve as date,value rows.
func WriteCurveCSV(w io.Writer, res *backtest.RunResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "value"}); err != nil {
		return err
	}
	for _, p := range res.Curve {
		if err := cw.Write([]string{
			p.Date.Format("2006-01-02"),
			strconv.FormatFloat(p.Value, 'f', 2, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHoldingsCSV writes the per-asset value trace, one column per code.
func WriteHoldingsCSV(w io.Writer, res *backtest.RunResult) error {
	codes := res.Frame.Codes

	cw := csv.NewWriter(w)
	header := append([]string{"date"}, codes...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, h := range res.Holdings {
		row := make([]string, 0, len(codes)+1)
		row = append(row, h.Date.Format("2006-01-02"))
		for _, code := range codes {
			row = append(row, strconv.FormatFloat(h.Values[code], 'f', 2, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEventsCSV writes the rebalance log.
func WriteEventsCSV(w io.Writer, res *backtest.RunResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "reason", "code", "weight"}); err != nil {
		return err
	}

	for _, ev := range res.Events {
		codes := make([]string, 0, len(ev.Weights))
		for code := range ev.Weights {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		for _, code := range codes {
			if err := cw.Write([]string{
				ev.Date.Format("2006-01-02"),
				ev.Reason,
				code,
				strconv.FormatFloat(ev.Weights[code], 'f', 4, 64),
			}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGridCSV writes the sweep results in enumeration order. Failed rows
// keep their place with an error column instead of metrics.
func WriteGridCSV(w io.Writer, rows []backtest.GridRow) error {
	cw := csv.NewWriter(w)
	header := []string{
		"short", "mid", "long",
		"total_return", "annualized_return", "volatility", "sharpe", "max_drawdown",
		"error",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.Short),
			strconv.Itoa(row.Mid),
			strconv.Itoa(row.Long),
		}
		if row.Metrics != nil {
			record = append(record,
				formatCSVFloat(row.Metrics.TotalReturn),
				formatCSVFloat(row.Metrics.AnnualizedReturn),
				formatCSVFloat(row.Metrics.AnnualizedVolatility),
				formatCSVFloat(row.Metrics.SharpeRatio),
				formatCSVFloat(row.Metrics.MaxDrawdown),
				"")
		} else {
			record = append(record, "", "", "", "", "", row.Err)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatCSVFloat keeps NaN and the infinities out of numeric columns.
func formatCSVFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%v", v)
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
