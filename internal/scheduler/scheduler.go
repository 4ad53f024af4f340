// Package scheduler runs the recurring data jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hxlyu/allweather/pkg/logger"
)

// Scheduler owns the cron runner, the registered jobs and their history.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	jobs    map[string]Job
	history map[string]*JobHistory
	mu      sync.RWMutex

	maxRetries int
	retryDelay time.Duration
}

func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		logger:     log,
		jobs:       make(map[string]Job),
		history:    make(map[string]*JobHistory),
		maxRetries: 3,
		retryDelay: time.Minute,
	}
}

// AddJob registers a job under its schedule. Registering the same name
// twice is an error.
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	if _, err := s.cron.AddFunc(job.Schedule(), func() {
		s.runJob(job)
	}); err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.history[name] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")
	return nil
}

func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop waits for any running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunJob triggers a registered job immediately, outside its schedule.
func (s *Scheduler) RunJob(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	go s.runJob(job)
	return nil
}

// runJob executes one job with retries and records the outcome.
func (s *Scheduler) runJob(job Job) {
	name := job.Name()
	start := time.Now()

	s.logger.WithField("job", name).Info("Job started")

	var lastErr error
	success := false
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := job.Run(context.Background()); err == nil {
			success = true
			break
		} else {
			lastErr = err
		}

		s.logger.WithFields(map[string]interface{}{
			"job":     name,
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		}).Warn("Job execution failed")

		if attempt < s.maxRetries {
			time.Sleep(s.retryDelay)
		}
	}

	end := time.Now()
	result := JobResult{
		JobName:   name,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Success:   success,
	}
	if !success && lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if h, exists := s.history[name]; exists {
		h.AddResult(result)
	}
	s.mu.Unlock()

	if success {
		s.logger.WithFields(map[string]interface{}{
			"job":      name,
			"duration": result.Duration,
		}).Info("Job completed")
	} else {
		s.logger.WithFields(map[string]interface{}{
			"job":      name,
			"duration": result.Duration,
			"error":    result.Error,
		}).Error("Job failed after all retries")
	}
}

// History returns the recorded results for a job.
func (s *Scheduler) History(name string) (*JobHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.history[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return h, nil
}

// Jobs lists the registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}
