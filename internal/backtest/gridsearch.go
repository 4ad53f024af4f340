package backtest

import (
	"sync"

	"github.com/hxlyu/allweather/internal/contracts"
	"github.com/hxlyu/allweather/internal/metrics"
	"github.com/hxlyu/allweather/internal/strategy"
)

// GridSpec enumerates the moving-average windows to sweep. The Cartesian
// product is evaluated short-outermost, long-innermost.
type GridSpec struct {
	Short []int
	Mid   []int
	Long  []int

	// Workers bounds the parallel evaluations. 0 or 1 runs sequentially.
	Workers int
}

// GridRow is one parameter combination's outcome. A combination that fails
// carries its error text and nil Metrics; the sweep itself still succeeds.
type GridRow struct {
	Short int
	Mid   int
	Long  int

	Metrics *metrics.Record
	Err     string
}

// GridSearch evaluates the tvalue strategy over every window combination.
// Row order matches enumeration order regardless of worker count: rows are
// indexed up front and each worker writes only its own slots.
func (e *Engine) GridSearch(u contracts.Universe, cfg RunConfig, spec GridSpec) ([]GridRow, error) {
	if len(spec.Short) == 0 || len(spec.Mid) == 0 || len(spec.Long) == 0 {
		return nil, &ConfigurationError{Reason: "grid search needs at least one window per list"}
	}

	frame, err := Align(u)
	if err != nil {
		return nil, err
	}

	rows := make([]GridRow, 0, len(spec.Short)*len(spec.Mid)*len(spec.Long))
	for _, s := range spec.Short {
		for _, m := range spec.Mid {
			for _, l := range spec.Long {
				rows = append(rows, GridRow{Short: s, Mid: m, Long: l})
			}
		}
	}

	workers := spec.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(rows) {
		workers = len(rows)
	}

	idx := make(chan int, len(rows))
	for i := range rows {
		idx <- i
	}
	close(idx)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				e.evaluate(frame, cfg, &rows[i])
			}
		}()
	}
	wg.Wait()

	failed := 0
	for i := range rows {
		if rows[i].Err != "" {
			failed++
		}
	}
	e.log.WithFields(map[string]interface{}{
		"combinations": len(rows),
		"failed":       failed,
		"workers":      workers,
	}).Info("grid search complete")

	return rows, nil
}

// evaluate runs one combination against the shared frame. The frame is
// read-only after Align, so concurrent evaluations need no locking.
func (e *Engine) evaluate(frame *Frame, cfg RunConfig, row *GridRow) {
	params := cfg.TValue
	params.Short = row.Short
	params.Mid = row.Mid
	params.Long = row.Long

	changes, err := strategy.TValue(frame.Dates, frame.Closes, cfg.Weights, params)
	if err != nil {
		row.Err = err.Error()
		return
	}

	directives := make([]Directive, 0, len(changes))
	for _, c := range changes {
		directives = append(directives, Directive{Date: c.Date, Weights: c.Weights, Reason: c.Reason})
	}

	sim, err := SimulateDirectives(frame, cfg.Weights, cfg.Capital, directives)
	if err != nil {
		row.Err = err.Error()
		return
	}

	rec, err := metrics.Compute(sim.Curve, metrics.Options{
		RiskFree:    cfg.RiskFree,
		TradingDays: cfg.TradingDays,
	})
	if err != nil {
		row.Err = err.Error()
		return
	}
	row.Metrics = rec
}
