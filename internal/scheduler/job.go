package scheduler

import (
	"context"
	"time"
)

// Job is one schedulable unit of work.
type Job interface {
	// Name identifies the job in logs and history.
	Name() string

	// Run executes the job.
	Run(ctx context.Context) error

	// Schedule is the cron expression, seconds field included.
	// Example: "0 30 15 * * MON-FRI" runs at 15:30 on trading weekdays.
	Schedule() string
}

// JobResult is one execution's outcome.
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory keeps the most recent results per job.
type JobHistory struct {
	Results []JobResult
}

const historyLimit = 100

func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// SuccessRate is the fraction of recorded runs that succeeded.
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	ok := 0
	for _, r := range h.Results {
		if r.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(h.Results))
}
