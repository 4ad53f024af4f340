package backtest

import (
	"sort"
	"time"

	"github.com/hxlyu/allweather/internal/contracts"
)

// Frame is the aligned close-price matrix: the trading dates present in
// every asset's series (inner join), each column one asset. It is rebuilt
// per run and never mutated afterwards.
type Frame struct {
	Dates  []time.Time
	Codes  []string             // sorted for stable iteration
	Closes map[string][]float64 // per code, len == len(Dates)
}

// Len returns the number of aligned trading dates.
func (f *Frame) Len() int {
	return len(f.Dates)
}

// Price returns the close for code at date index i.
func (f *Frame) Price(code string, i int) float64 {
	return f.Closes[code][i]
}

// Align intersects the universe's series onto the common set of trading
// dates, ascending. Fewer than 2 common dates cannot support a return
// computation and yield an AlignmentError. Pure function of its input.
func Align(u contracts.Universe) (*Frame, error) {
	codes := make([]string, 0, len(u))
	for code := range u {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	if len(codes) == 0 {
		return nil, &AlignmentError{Codes: codes, Overlap: 0}
	}

	// Count date occurrences; a date common to all assets appears once per
	// asset because each series carries unique dates.
	seen := make(map[time.Time]int)
	closeAt := make(map[string]map[time.Time]float64, len(codes))
	for _, code := range codes {
		byDate := make(map[time.Time]float64, len(u[code]))
		for _, p := range u[code] {
			d := contracts.Day(p.Date)
			byDate[d] = p.Close
		}
		for d := range byDate {
			seen[d]++
		}
		closeAt[code] = byDate
	}

	dates := make([]time.Time, 0, len(seen))
	for d, n := range seen {
		if n == len(codes) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	if len(dates) < 2 {
		return nil, &AlignmentError{Codes: codes, Overlap: len(dates)}
	}

	closes := make(map[string][]float64, len(codes))
	for _, code := range codes {
		col := make([]float64, len(dates))
		for i, d := range dates {
			col[i] = closeAt[code][d]
		}
		closes[code] = col
	}

	return &Frame{Dates: dates, Codes: codes, Closes: closes}, nil
}
