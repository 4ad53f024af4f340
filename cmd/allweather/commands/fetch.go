package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hxlyu/allweather/internal/marketdata"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Collect closes and adjustment factors for the portfolio",
	Long: `Fetches daily closes and adjustment factors for every portfolio
asset over the given range and stores them.

Example:
  go run ./cmd/allweather fetch --from 2015-01-01
  go run ./cmd/allweather fetch --from 2015-01-01 --to 2024-06-28 --workers 3`,
	RunE: runFetch,
}

var (
	fetchFrom    string
	fetchTo      string
	fetchWorkers int
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "start date (YYYY-MM-DD)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "end date (YYYY-MM-DD, default today)")
	fetchCmd.Flags().IntVar(&fetchWorkers, "workers", 2, "concurrent per-asset fetches")
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := initApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	from, to, err := dateRange(fetchFrom, fetchTo, a.portfolio.Backtest)
	if err != nil {
		return err
	}

	collector := marketdata.NewCollector(a.tushareClient(), a.repository(), a.log)
	results := collector.FetchAll(cmd.Context(), a.portfolio.Codes(), from, to, marketdata.Config{
		Workers: fetchWorkers,
	})

	failed := 0
	for _, res := range results {
		if res.Error != nil {
			failed++
			fmt.Printf("  %-12s FAILED: %v\n", res.Code, res.Error)
			continue
		}
		fmt.Printf("  %-12s %d closes, %d factors\n", res.Code, res.PriceCount, res.FactorCount)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d assets failed", failed, len(results))
	}

	fmt.Printf("\nFetched %d assets (%s to %s)\n",
		len(results), from.Format("2006-01-02"), to.Format("2006-01-02"))
	return nil
}
