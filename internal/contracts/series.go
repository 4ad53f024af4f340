// Package contracts holds the plain data types shared between the data
// pipeline and the simulation core. Series are ordered by date ascending
// with unique dates; producers are responsible for that invariant.
package contracts

import "time"

// PricePoint is one daily close observation for an asset.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// FactorPoint is one daily adjustment-factor observation. The factor table
// is published less densely than the price table, so a close date may have
// no matching factor.
type FactorPoint struct {
	Date   time.Time
	Factor float64
}

// ValuePoint is one daily portfolio valuation.
type ValuePoint struct {
	Date  time.Time
	Value float64
}

// Universe maps asset codes to their adjusted close series.
type Universe map[string][]PricePoint

// Weights maps asset codes to target allocation weights. Weights need not
// sum to 1; the simulator normalizes before the first allocation.
type Weights map[string]float64

// Day truncates a timestamp to its calendar date in UTC. Daily series are
// keyed by Day so that timezone noise from upstream sources cannot split a
// trading day in two.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
