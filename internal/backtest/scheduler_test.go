package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	for _, s := range []string{"NONE", "M", "Q", "A"} {
		p, err := ParsePolicy(s)
		require.NoError(t, err)
		assert.Equal(t, Policy(s), p)
	}

	_, err := ParsePolicy("W")
	assert.Error(t, err)
	_, err = ParsePolicy("m")
	assert.Error(t, err)
}

func TestScheduleNone(t *testing.T) {
	dates := []time.Time{d(2024, 1, 2), d(2024, 2, 1), d(2024, 3, 1)}
	assert.Empty(t, ScheduleRebalances(dates, PolicyNone))
}

func TestScheduleMonthly(t *testing.T) {
	dates := []time.Time{
		d(2024, 1, 2), d(2024, 1, 15), d(2024, 1, 31),
		d(2024, 2, 1), d(2024, 2, 19),
		d(2024, 3, 4), d(2024, 3, 29),
	}

	got := ScheduleRebalances(dates, PolicyMonthly)
	assert.Equal(t, []time.Time{d(2024, 2, 1), d(2024, 3, 4)}, got)
}

func TestScheduleInitialDateIsNotARebalance(t *testing.T) {
	// The series starts on the first trading day of a month; that month
	// must not fire.
	dates := []time.Time{d(2024, 2, 1), d(2024, 2, 19), d(2024, 3, 4)}
	got := ScheduleRebalances(dates, PolicyMonthly)
	assert.Equal(t, []time.Time{d(2024, 3, 4)}, got)
}

func TestScheduleSkippedPeriodRollsForward(t *testing.T) {
	// No trading dates at all in February: March's first date fires once,
	// not twice.
	dates := []time.Time{d(2024, 1, 2), d(2024, 1, 31), d(2024, 3, 4), d(2024, 3, 5)}
	got := ScheduleRebalances(dates, PolicyMonthly)
	assert.Equal(t, []time.Time{d(2024, 3, 4)}, got)
}

func TestScheduleQuarterly(t *testing.T) {
	dates := []time.Time{
		d(2024, 1, 2), d(2024, 2, 1), d(2024, 3, 29),
		d(2024, 4, 1), d(2024, 5, 6),
		d(2024, 7, 1),
		d(2025, 1, 2),
	}

	got := ScheduleRebalances(dates, PolicyQuarterly)
	assert.Equal(t, []time.Time{d(2024, 4, 1), d(2024, 7, 1), d(2025, 1, 2)}, got)
}

func TestScheduleAnnual(t *testing.T) {
	dates := []time.Time{
		d(2023, 6, 1), d(2023, 12, 29),
		d(2024, 1, 2), d(2024, 6, 3),
		d(2025, 1, 2),
	}

	got := ScheduleRebalances(dates, PolicyAnnual)
	assert.Equal(t, []time.Time{d(2024, 1, 2), d(2025, 1, 2)}, got)
}

func TestScheduleTooFewDates(t *testing.T) {
	assert.Empty(t, ScheduleRebalances([]time.Time{d(2024, 1, 2)}, PolicyMonthly))
	assert.Empty(t, ScheduleRebalances(nil, PolicyMonthly))
}
