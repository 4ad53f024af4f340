package backtest

import (
	"fmt"
	"time"
)

// Policy is the rebalancing frequency.
type Policy string

const (
	PolicyNone      Policy = "NONE"
	PolicyMonthly   Policy = "M"
	PolicyQuarterly Policy = "Q"
	PolicyAnnual    Policy = "A"
)

// ParsePolicy validates a policy string.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyNone, PolicyMonthly, PolicyQuarterly, PolicyAnnual:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown rebalance policy %q (want NONE, M, Q or A)", s)
}

// ScheduleRebalances returns the subset of aligned dates at which a
// rebalance fires: the first aligned trading date of each calendar month,
// quarter or year strictly after the initial allocation date. The initial
// date sets target weights but is not itself a rebalance event. If a period
// has no trading date of its own, the rebalance rolls to the first trading
// date of the next period that does (first-available-date rule).
func ScheduleRebalances(dates []time.Time, p Policy) []time.Time {
	if p == PolicyNone || len(dates) < 2 {
		return nil
	}

	var out []time.Time
	for i := 1; i < len(dates); i++ {
		if periodKey(dates[i], p) != periodKey(dates[i-1], p) {
			out = append(out, dates[i])
		}
	}
	return out
}

// periodKey collapses a date to its calendar period under the policy.
func periodKey(d time.Time, p Policy) int {
	y, m, _ := d.Date()
	switch p {
	case PolicyMonthly:
		return y*12 + int(m) - 1
	case PolicyQuarterly:
		return y*4 + (int(m)-1)/3
	case PolicyAnnual:
		return y
	}
	return 0
}
