package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hxlyu/allweather/internal/backtest"
	"github.com/hxlyu/allweather/internal/report"
)

var gridsearchCmd = &cobra.Command{
	Use:   "gridsearch",
	Short: "Sweep tvalue moving-average windows",
	Long: `Evaluates the tvalue strategy over every combination of the
configured short/mid/long window lists and writes the results as CSV.
Invalid combinations are recorded and skipped, not fatal.

Example:
  go run ./cmd/allweather gridsearch
  go run ./cmd/allweather gridsearch --workers 8 --top 10`,
	RunE: runGridsearch,
}

var (
	gridWorkers int
	gridTop     int
	gridFrom    string
	gridTo      string
)

func init() {
	rootCmd.AddCommand(gridsearchCmd)

	gridsearchCmd.Flags().StringVar(&gridFrom, "from", "", "start date (YYYY-MM-DD)")
	gridsearchCmd.Flags().StringVar(&gridTo, "to", "", "end date (YYYY-MM-DD, default today)")
	gridsearchCmd.Flags().IntVar(&gridWorkers, "workers", 0, "parallel evaluations (default from portfolio)")
	gridsearchCmd.Flags().IntVar(&gridTop, "top", 5, "print the best N rows by Sharpe")
}

func runGridsearch(cmd *cobra.Command, args []string) error {
	a, err := initApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	from, to, err := dateRange(gridFrom, gridTo, a.portfolio.Backtest)
	if err != nil {
		return err
	}
	cfg, err := a.runConfig()
	if err != nil {
		return err
	}

	gs := a.portfolio.GridSearch
	spec := backtest.GridSpec{
		Short:   gs.Short,
		Mid:     gs.Mid,
		Long:    gs.Long,
		Workers: gs.Workers,
	}
	if gridWorkers > 0 {
		spec.Workers = gridWorkers
	}

	universe, err := a.loadUniverse(cmd.Context(), from, to)
	if err != nil {
		return err
	}

	eng := backtest.NewEngine(a.log)
	rows, err := eng.GridSearch(universe, cfg, spec)
	if err != nil {
		return err
	}

	if err := a.cfg.EnsureDirectories(); err != nil {
		return err
	}
	path := filepath.Join(a.cfg.DataDir, fmt.Sprintf("%s_grid_%s_%s.csv",
		a.portfolio.Meta.PortfolioID, from.Format("20060102"), to.Format("20060102")))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WriteGridCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	printTopRows(rows, gridTop)
	fmt.Printf("\nGrid CSV: %s (%d combinations)\n", path, len(rows))
	return nil
}

// printTopRows shows the best successful rows ranked by Sharpe ratio.
func printTopRows(rows []backtest.GridRow, n int) {
	ok := make([]backtest.GridRow, 0, len(rows))
	for _, row := range rows {
		if row.Metrics != nil {
			ok = append(ok, row)
		}
	}
	sort.SliceStable(ok, func(i, j int) bool {
		return ok[i].Metrics.SharpeRatio > ok[j].Metrics.SharpeRatio
	})
	if n > len(ok) {
		n = len(ok)
	}

	fmt.Printf("\n  %-5s %-5s %-5s %10s %10s %10s\n", "short", "mid", "long", "return", "sharpe", "maxdd")
	for _, row := range ok[:n] {
		fmt.Printf("  %-5d %-5d %-5d %9.2f%% %10.2f %9.2f%%\n",
			row.Short, row.Mid, row.Long,
			row.Metrics.TotalReturn*100,
			row.Metrics.SharpeRatio,
			row.Metrics.MaxDrawdown*100)
	}
}
