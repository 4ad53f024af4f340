package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hxlyu/allweather/internal/marketdata"
	"github.com/hxlyu/allweather/internal/scheduler"
	"github.com/hxlyu/allweather/internal/scheduler/jobs"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the update daemon",
	Long: `Starts the scheduler and keeps the stored series current: the
daily update job runs after each session's close.

Example:
  go run ./cmd/allweather schedule
  go run ./cmd/allweather schedule --run-now`,
	RunE: runSchedule,
}

var scheduleRunNow bool

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false, "trigger the update job immediately on startup")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := initApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	collector := marketdata.NewCollector(a.tushareClient(), a.repository(), a.log)
	job := jobs.NewDailyUpdateJob(collector, a.portfolio.Codes(), 2, a.log)

	sched := scheduler.New(a.log)
	if err := sched.AddJob(job); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	if scheduleRunNow {
		if err := sched.RunJob(job.Name()); err != nil {
			return err
		}
	}

	fmt.Printf("Scheduler running, jobs: %v. Ctrl-C to stop.\n", sched.Jobs())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down")
	return nil
}
