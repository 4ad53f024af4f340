package marketdata

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hxlyu/allweather/internal/contracts"
	"github.com/hxlyu/allweather/pkg/logger"
)

// Source is the upstream price API, satisfied by the tushare client.
type Source interface {
	FetchFundDaily(ctx context.Context, tsCode string, from, to time.Time) ([]contracts.PricePoint, error)
	FetchDaily(ctx context.Context, tsCode string, from, to time.Time) ([]contracts.PricePoint, error)
	FetchFundAdj(ctx context.Context, tsCode string, from, to time.Time) ([]contracts.FactorPoint, error)
}

// Store is the persistence surface the collector writes through.
type Store interface {
	UpsertCloses(ctx context.Context, code string, points []contracts.PricePoint) error
	UpsertFactors(ctx context.Context, code string, factors []contracts.FactorPoint) error
	LatestCloseDate(ctx context.Context, code string) (time.Time, error)
}

// Collector pulls series from the source in yearly slices and persists
// them. Yearly slices keep each request under the source's row limits.
type Collector struct {
	source Source
	store  Store
	logger *logger.Logger
}

// Config holds collector settings.
type Config struct {
	Workers int // concurrent per-code fetches, min 1
}

func NewCollector(source Source, store Store, log *logger.Logger) *Collector {
	return &Collector{
		source: source,
		store:  store,
		logger: log.WithField("module", "collector"),
	}
}

// FetchResult is the per-code outcome of a collection run.
type FetchResult struct {
	Code        string
	PriceCount  int
	FactorCount int
	Error       error
}

// FetchAll collects closes and factors for every code over [from, to].
func (c *Collector) FetchAll(ctx context.Context, codes []string, from, to time.Time, cfg Config) []FetchResult {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	c.logger.WithFields(map[string]interface{}{
		"codes":   len(codes),
		"from":    from.Format("2006-01-02"),
		"to":      to.Format("2006-01-02"),
		"workers": workers,
	}).Info("Starting collection")

	codeCh := make(chan string, len(codes))
	resultCh := make(chan FetchResult, len(codes))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for code := range codeCh {
				resultCh <- c.fetchCode(ctx, code, from, to)
			}
		}()
	}

	for _, code := range codes {
		codeCh <- code
	}
	close(codeCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]FetchResult, 0, len(codes))
	failed := 0
	for res := range resultCh {
		results = append(results, res)
		if res.Error != nil {
			failed++
			c.logger.WithError(res.Error).WithField("code", res.Code).Error("Collection failed")
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Code < results[j].Code })

	c.logger.WithFields(map[string]interface{}{
		"success": len(results) - failed,
		"failed":  failed,
	}).Info("Collection completed")

	return results
}

// Update collects only what is missing: from the day after each code's
// latest stored date up to the given date. Codes with no stored rows start
// at fallbackStart.
func (c *Collector) Update(ctx context.Context, codes []string, fallbackStart, to time.Time, cfg Config) []FetchResult {
	results := make([]FetchResult, 0, len(codes))
	for _, code := range codes {
		latest, err := c.store.LatestCloseDate(ctx, code)
		if err != nil {
			results = append(results, FetchResult{Code: code, Error: err})
			continue
		}

		from := fallbackStart
		if !latest.IsZero() {
			from = latest.AddDate(0, 0, 1)
		}
		if from.After(to) {
			c.logger.WithField("code", code).Debug("Already up to date")
			results = append(results, FetchResult{Code: code})
			continue
		}

		results = append(results, c.fetchCode(ctx, code, from, to))
	}
	return results
}

// fetchCode collects one code: closes in yearly slices with the stock API
// as fallback, the factor series in one request.
func (c *Collector) fetchCode(ctx context.Context, code string, from, to time.Time) FetchResult {
	res := FetchResult{Code: code}

	var merged []contracts.PricePoint
	for _, slice := range yearSlices(from, to) {
		points, err := c.source.FetchFundDaily(ctx, code, slice.from, slice.to)
		if err != nil {
			res.Error = fmt.Errorf("fund_daily %s: %w", code, err)
			return res
		}
		if len(points) == 0 {
			// Some index ETFs only exist in the stock daily table.
			points, err = c.source.FetchDaily(ctx, code, slice.from, slice.to)
			if err != nil {
				res.Error = fmt.Errorf("daily %s: %w", code, err)
				return res
			}
		}
		merged = append(merged, points...)
	}

	closes := c.dedupe(code, merged)
	if err := c.store.UpsertCloses(ctx, code, closes); err != nil {
		res.Error = err
		return res
	}
	res.PriceCount = len(closes)

	factors, err := c.source.FetchFundAdj(ctx, code, from, to)
	if err != nil {
		res.Error = fmt.Errorf("fund_adj %s: %w", code, err)
		return res
	}
	if err := c.store.UpsertFactors(ctx, code, factors); err != nil {
		res.Error = err
		return res
	}
	res.FactorCount = len(factors)

	return res
}

// dedupe collapses duplicate dates, the later row winning, and re-sorts.
// Duplicates mean overlapping slices or an upstream anomaly, so they are
// worth a warning either way.
func (c *Collector) dedupe(code string, points []contracts.PricePoint) []contracts.PricePoint {
	byDate := make(map[time.Time]float64, len(points))
	dupes := 0
	for _, p := range points {
		d := contracts.Day(p.Date)
		if _, ok := byDate[d]; ok {
			dupes++
		}
		byDate[d] = p.Close
	}
	if dupes > 0 {
		c.logger.WithFields(map[string]interface{}{
			"code":       code,
			"duplicates": dupes,
		}).Warn("Duplicate dates in fetched series")
	}

	out := make([]contracts.PricePoint, 0, len(byDate))
	for d, close := range byDate {
		out = append(out, contracts.PricePoint{Date: d, Close: close})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

type dateRange struct {
	from, to time.Time
}

// yearSlices splits [from, to] on calendar-year boundaries.
func yearSlices(from, to time.Time) []dateRange {
	var out []dateRange
	for start := from; !start.After(to); {
		end := time.Date(start.Year(), 12, 31, 0, 0, 0, 0, time.UTC)
		if end.After(to) {
			end = to
		}
		out = append(out, dateRange{from: start, to: end})
		start = end.AddDate(0, 0, 1)
	}
	return out
}
