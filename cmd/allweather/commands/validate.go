package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hxlyu/allweather/internal/quality"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check stored data quality",
	Long: `Validates the stored series for every portfolio asset: calendar
completeness, return anomalies and agreement with an independent second
source.

Example:
  go run ./cmd/allweather validate
  go run ./cmd/allweather validate --from 2020-01-01 --to 2024-06-28`,
	RunE: runValidate,
}

var (
	validateFrom string
	validateTo   string
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFrom, "from", "", "start date (YYYY-MM-DD)")
	validateCmd.Flags().StringVar(&validateTo, "to", "", "end date (YYYY-MM-DD, default today)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := initApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	from, to, err := dateRange(validateFrom, validateTo, a.portfolio.Backtest)
	if err != nil {
		return err
	}

	validator := quality.NewValidator(a.tushareClient(), a.eastmoneyClient(), quality.Config{
		MaxAbsReturn:     a.portfolio.Validation.MaxAbsReturn,
		RobustZThreshold: a.portfolio.Validation.RobustZThreshold,
		CrossMeanDiffMax: a.portfolio.Validation.CrossMeanDiffMax,
		CrossCorrMin:     a.portfolio.Validation.CrossCorrMin,
	}, a.log)

	repo := a.repository()
	failed := 0
	for _, code := range a.portfolio.Codes() {
		points, err := repo.GetCloses(cmd.Context(), code, from, to)
		if err != nil {
			return fmt.Errorf("load closes for %s: %w", code, err)
		}

		report, err := validator.Validate(cmd.Context(), code, points)
		if err != nil {
			return err
		}

		status := "OK"
		if !report.Passed {
			status = "FAILED"
			failed++
		}
		fmt.Printf("  %-12s %-7s %d points, completeness %.1f%%, %d anomalies",
			code, status, report.Points, report.Completeness*100, len(report.Anomalies))
		if report.CrossChecked {
			fmt.Printf(", corr %.3f", report.ReturnCorr)
		}
		fmt.Println()

		for _, m := range report.MissingDates {
			fmt.Printf("    missing %s\n", m.Format("2006-01-02"))
		}
		for _, an := range report.Anomalies {
			fmt.Printf("    %s %s return %.2f%%\n", an.Date.Format("2006-01-02"), an.Reason, an.Return*100)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d assets failed validation", failed)
	}
	fmt.Println("\nAll assets passed validation")
	return nil
}
