// Package jobs holds the concrete scheduled jobs.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hxlyu/allweather/internal/marketdata"
	"github.com/hxlyu/allweather/pkg/logger"
)

// defaultHistoryStart is where collection begins for assets with no stored
// rows yet. The oldest ETF in a typical universe listed in 2013.
var defaultHistoryStart = time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)

// DailyUpdateJob pulls the latest closes and factors for the configured
// universe after each session.
type DailyUpdateJob struct {
	collector *marketdata.Collector
	codes     []string
	workers   int
	logger    *logger.Logger
}

func NewDailyUpdateJob(col *marketdata.Collector, codes []string, workers int, log *logger.Logger) *DailyUpdateJob {
	return &DailyUpdateJob{
		collector: col,
		codes:     codes,
		workers:   workers,
		logger:    log,
	}
}

func (j *DailyUpdateJob) Name() string {
	return "daily_update"
}

// Schedule fires at 16:30 China time on weekdays, after the close and the
// upstream's end-of-day publication.
func (j *DailyUpdateJob) Schedule() string {
	return "0 30 16 * * MON-FRI"
}

func (j *DailyUpdateJob) Run(ctx context.Context) error {
	j.logger.WithField("codes", len(j.codes)).Info("Starting scheduled update")

	results := j.collector.Update(ctx, j.codes, defaultHistoryStart, time.Now(), marketdata.Config{
		Workers: j.workers,
	})

	var failed []string
	for _, res := range results {
		if res.Error != nil {
			failed = append(failed, res.Code)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("update failed for %d of %d codes: %v", len(failed), len(results), failed)
	}
	return nil
}
