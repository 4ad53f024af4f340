package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hxlyu/allweather/internal/backtest"
	"github.com/hxlyu/allweather/internal/chart"
	"github.com/hxlyu/allweather/internal/report"
	"github.com/hxlyu/allweather/internal/strategy"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a portfolio backtest",
	Long: `Runs a backtest over the stored, adjusted series: fixed weights
with an optional rebalance schedule, or the trend-following tvalue
strategy.

Example:
  go run ./cmd/allweather backtest --rebalance Q
  go run ./cmd/allweather backtest --strategy tvalue --from 2018-01-01
  go run ./cmd/allweather backtest --rebalance M --chart --report`,
	RunE: runBacktestCmd,
}

var (
	backtestFrom      string
	backtestTo        string
	backtestRebalance string
	backtestStrategy  string
	backtestCapital   float64
	backtestRiskFree  float64
	backtestChart     bool
	backtestReport    bool
	backtestCSV       bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "start date (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "end date (YYYY-MM-DD, default today)")
	backtestCmd.Flags().StringVar(&backtestRebalance, "rebalance", "", "rebalance policy (NONE|M|Q|A, default from portfolio)")
	backtestCmd.Flags().StringVar(&backtestStrategy, "strategy", backtest.StrategyFixed, "strategy (fixed|tvalue)")
	backtestCmd.Flags().Float64Var(&backtestCapital, "capital", 0, "initial capital (default from portfolio)")
	backtestCmd.Flags().Float64Var(&backtestRiskFree, "risk-free", -1, "annual risk-free rate (default from portfolio)")
	backtestCmd.Flags().BoolVar(&backtestChart, "chart", false, "write a NAV chart PNG")
	backtestCmd.Flags().BoolVar(&backtestReport, "report", false, "write a markdown report")
	backtestCmd.Flags().BoolVar(&backtestCSV, "csv", false, "write curve/holdings/events CSVs")
}

// runConfig assembles the engine configuration from the portfolio file and
// flag overrides.
func (a *app) runConfig() (backtest.RunConfig, error) {
	bt := a.portfolio.Backtest

	policyStr := backtestRebalance
	if policyStr == "" {
		policyStr = bt.Rebalance
	}
	policy, err := backtest.ParsePolicy(policyStr)
	if err != nil {
		return backtest.RunConfig{}, err
	}

	capital := backtestCapital
	if capital == 0 {
		capital = bt.InitialCapital
	}
	riskFree := backtestRiskFree
	if riskFree < 0 {
		riskFree = bt.RiskFreeAnnual
	}

	bond, cash := a.portfolio.BufferCodes()
	tv := a.portfolio.TValue

	return backtest.RunConfig{
		Policy:      policy,
		Strategy:    backtestStrategy,
		Capital:     capital,
		RiskFree:    riskFree,
		TradingDays: bt.TradingDays,
		Weights:     a.portfolio.Weights(),
		TValue: strategy.Params{
			Short:             tv.Short,
			Mid:               tv.Mid,
			Long:              tv.Long,
			ConfirmDays:       tv.ConfirmDays,
			CooldownDays:      tv.CooldownDays,
			CashCode:          cash,
			BondCode:          bond,
			FastMoveWindow:    tv.FastMoveWindow,
			FastMoveThreshold: tv.FastMoveThreshold,
		},
	}, nil
}

func runBacktestCmd(cmd *cobra.Command, args []string) error {
	a, err := initApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	from, to, err := dateRange(backtestFrom, backtestTo, a.portfolio.Backtest)
	if err != nil {
		return err
	}
	cfg, err := a.runConfig()
	if err != nil {
		return err
	}

	universe, err := a.loadUniverse(cmd.Context(), from, to)
	if err != nil {
		return err
	}

	eng := backtest.NewEngine(a.log)
	res, err := eng.Run(universe, cfg)
	if err != nil {
		return err
	}

	printRunResult(a, res)

	if backtestReport {
		if err := a.cfg.EnsureDirectories(); err != nil {
			return err
		}
		path, err := report.WriteMarkdown(res, a.portfolio.Meta.PortfolioID, a.cfg.ReportDir)
		if err != nil {
			return err
		}
		fmt.Printf("Report:  %s\n", path)
	}
	if backtestChart {
		if err := a.cfg.EnsureDirectories(); err != nil {
			return err
		}
		path, err := chart.Save(res, a.portfolio.Meta.PortfolioID, a.cfg.ChartDir)
		if err != nil {
			return err
		}
		fmt.Printf("Chart:   %s\n", path)
	}
	if backtestCSV {
		if err := writeRunCSVs(a, res); err != nil {
			return err
		}
	}
	return nil
}

func printRunResult(a *app, res *backtest.RunResult) {
	rec := res.Metrics

	fmt.Printf("\nPortfolio %s (%s, config %s)\n",
		a.portfolio.Meta.PortfolioID, backtestStrategy, a.hash[:12])
	fmt.Printf("Period: %s to %s, %d trading days, %d rebalances\n\n",
		rec.Start.Format("2006-01-02"), rec.End.Format("2006-01-02"),
		rec.Periods+1, len(res.Events))

	fmt.Printf("  Total return           %10.2f%%\n", rec.TotalReturn*100)
	fmt.Printf("  Annualized return      %10.2f%%\n", rec.AnnualizedReturn*100)
	fmt.Printf("  Annualized volatility  %10.2f%%\n", rec.AnnualizedVolatility*100)
	fmt.Printf("  Sharpe ratio           %10s\n", report.SharpeValue(rec))
	fmt.Printf("  Max drawdown           %10.2f%%  (%s to %s)\n\n",
		rec.MaxDrawdown*100,
		rec.MaxDrawdownStart.Format("2006-01-02"),
		rec.MaxDrawdownEnd.Format("2006-01-02"))
}

func writeRunCSVs(a *app, res *backtest.RunResult) error {
	if err := a.cfg.EnsureDirectories(); err != nil {
		return err
	}

	prefix := fmt.Sprintf("%s_%s_%s",
		a.portfolio.Meta.PortfolioID,
		res.Metrics.Start.Format("20060102"),
		res.Metrics.End.Format("20060102"))

	writers := []struct {
		suffix string
		write  func(f *os.File) error
	}{
		{"curve", func(f *os.File) error { return report.WriteCurveCSV(f, res) }},
		{"holdings", func(f *os.File) error { return report.WriteHoldingsCSV(f, res) }},
		{"events", func(f *os.File) error { return report.WriteEventsCSV(f, res) }},
	}

	for _, w := range writers {
		path := filepath.Join(a.cfg.DataDir, fmt.Sprintf("%s_%s.csv", prefix, w.suffix))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := w.write(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("CSV:     %s\n", path)
	}
	return nil
}
