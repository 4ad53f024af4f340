package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hxlyu/allweather/internal/contracts"
	"github.com/hxlyu/allweather/internal/marketdata"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Incrementally collect missing recent data",
	Long: `Collects only what is missing: for each asset, from the day after
its latest stored date up to today.

Example:
  go run ./cmd/allweather update`,
	RunE: runUpdate,
}

var updateWorkers int

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().IntVar(&updateWorkers, "workers", 2, "concurrent per-asset fetches")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	a, err := initApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	fallbackStart, _, err := dateRange("", "", a.portfolio.Backtest)
	if err != nil {
		return err
	}

	collector := marketdata.NewCollector(a.tushareClient(), a.repository(), a.log)
	results := collector.Update(cmd.Context(), a.portfolio.Codes(),
		fallbackStart, contracts.Day(time.Now()), marketdata.Config{Workers: updateWorkers})

	failed := 0
	for _, res := range results {
		if res.Error != nil {
			failed++
			fmt.Printf("  %-12s FAILED: %v\n", res.Code, res.Error)
			continue
		}
		if res.PriceCount == 0 {
			fmt.Printf("  %-12s up to date\n", res.Code)
			continue
		}
		fmt.Printf("  %-12s +%d closes, +%d factors\n", res.Code, res.PriceCount, res.FactorCount)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d assets failed", failed, len(results))
	}
	return nil
}
