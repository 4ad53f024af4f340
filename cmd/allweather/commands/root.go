// Package commands wires the CLI: data collection, validation, backtests,
// parameter sweeps and the update daemon.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hxlyu/allweather/internal/adjust"
	"github.com/hxlyu/allweather/internal/contracts"
	"github.com/hxlyu/allweather/internal/external/eastmoney"
	"github.com/hxlyu/allweather/internal/external/tushare"
	"github.com/hxlyu/allweather/internal/marketdata"
	"github.com/hxlyu/allweather/internal/strategyconfig"
	"github.com/hxlyu/allweather/pkg/config"
	"github.com/hxlyu/allweather/pkg/database"
	"github.com/hxlyu/allweather/pkg/httputil"
	"github.com/hxlyu/allweather/pkg/logger"
)

var (
	portfolioFile string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "allweather",
	Short: "Multi-asset ETF portfolio backtester",
	Long: `allweather collects ETF closes and adjustment factors, validates
them, and backtests fixed-weight and trend-following allocations over the
adjusted series.

Examples:
  go run ./cmd/allweather fetch --from 2015-01-01
  go run ./cmd/allweather update
  go run ./cmd/allweather validate
  go run ./cmd/allweather backtest --rebalance Q
  go run ./cmd/allweather gridsearch
  go run ./cmd/allweather schedule`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&portfolioFile, "portfolio", "", "portfolio yaml (default from STRATEGY_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// app bundles the shared dependencies commands assemble on startup.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	portfolio *strategyconfig.Config
	hash      string
}

// initApp loads environment config and the portfolio file; withDB also
// opens the connection pool.
func initApp(withDB bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	path := portfolioFile
	if path == "" {
		path = cfg.StrategyFile
	}
	portfolio, _, err := strategyconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load portfolio %s: %w", path, err)
	}
	hash, err := strategyconfig.Hash(portfolio)
	if err != nil {
		return nil, fmt.Errorf("hash portfolio: %w", err)
	}

	a := &app{cfg: cfg, log: log, portfolio: portfolio, hash: hash}

	if withDB {
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
	}

	log.WithFields(map[string]interface{}{
		"portfolio": portfolio.Meta.PortfolioID,
		"hash":      hash[:12],
	}).Debug("Portfolio loaded")

	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

// tushareClient builds the rate-limited primary source client.
func (a *app) tushareClient() *tushare.Client {
	httpClient := httputil.New(a.log).
		WithRateLimit(a.cfg.Tushare.RateLimit, a.cfg.Tushare.RateBurst)
	return tushare.NewClient(httpClient, a.log, a.cfg.Tushare.BaseURL, a.cfg.Tushare.Token)
}

// eastmoneyClient builds the second-source client.
func (a *app) eastmoneyClient() *eastmoney.Client {
	return eastmoney.NewClient(httputil.New(a.log), a.log, a.cfg.Eastmoney.BaseURL)
}

func (a *app) repository() *marketdata.Repository {
	return marketdata.NewRepository(a.db.Pool)
}

// dateRange resolves the run period: flags first, then the portfolio file,
// then open-ended defaults.
func dateRange(flagFrom, flagTo string, bt strategyconfig.Backtest) (time.Time, time.Time, error) {
	from := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	to := contracts.Day(time.Now())

	pick := func(flag, cfgVal string, fallback time.Time) (time.Time, error) {
		s := flag
		if s == "" {
			s = cfgVal
		}
		if s == "" {
			return fallback, nil
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		return t, nil
	}

	from, err := pick(flagFrom, bt.Start, from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err = pick(flagTo, bt.End, to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s before start date %s",
			to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	return from, to, nil
}

// loadUniverse reads the stored series for every portfolio asset and
// applies the configured price adjustment.
func (a *app) loadUniverse(ctx context.Context, from, to time.Time) (contracts.Universe, error) {
	mode, err := adjust.ParseMode(a.portfolio.Backtest.AdjustMode)
	if err != nil {
		return nil, err
	}
	opts := adjust.Options{
		Mode:         mode,
		MissingAsRaw: a.portfolio.Backtest.MissingFactorAsRaw,
	}

	repo := a.repository()
	universe := make(contracts.Universe, len(a.portfolio.Universe.Assets))
	for _, asset := range a.portfolio.Universe.Assets {
		closes, err := repo.GetCloses(ctx, asset.Code, from, to)
		if err != nil {
			return nil, fmt.Errorf("load closes for %s: %w", asset.Code, err)
		}
		factors, err := repo.GetFactors(ctx, asset.Code, from, to)
		if err != nil {
			return nil, fmt.Errorf("load factors for %s: %w", asset.Code, err)
		}

		adjusted, err := adjust.Apply(asset.Code, closes, factors, opts)
		if err != nil {
			return nil, err
		}
		universe[asset.Code] = adjusted
	}
	return universe, nil
}
