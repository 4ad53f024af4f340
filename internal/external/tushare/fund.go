package tushare

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hxlyu/allweather/internal/contracts"
)

// dateParam formats a time as Tushare's YYYYMMDD.
func dateParam(t time.Time) string {
	return t.Format("20060102")
}

// FetchFundDaily fetches daily ETF closes via fund_daily. ETF codes that
// Tushare classifies as index products come back empty here; the caller
// falls back to FetchDaily.
func (c *Client) FetchFundDaily(ctx context.Context, tsCode string, from, to time.Time) ([]contracts.PricePoint, error) {
	rs, err := c.call(ctx, "fund_daily", map[string]string{
		"ts_code":    tsCode,
		"start_date": dateParam(from),
		"end_date":   dateParam(to),
	}, "ts_code,trade_date,close")
	if err != nil {
		return nil, err
	}
	return c.pricePoints(rs, tsCode)
}

// FetchDaily fetches daily closes via the stock daily API, the fallback for
// codes fund_daily does not cover.
func (c *Client) FetchDaily(ctx context.Context, tsCode string, from, to time.Time) ([]contracts.PricePoint, error) {
	rs, err := c.call(ctx, "daily", map[string]string{
		"ts_code":    tsCode,
		"start_date": dateParam(from),
		"end_date":   dateParam(to),
	}, "ts_code,trade_date,close")
	if err != nil {
		return nil, err
	}
	return c.pricePoints(rs, tsCode)
}

// FetchFundAdj fetches the fund adjustment factor series. The factor table
// is sparser than the price table; gap filling happens downstream.
func (c *Client) FetchFundAdj(ctx context.Context, tsCode string, from, to time.Time) ([]contracts.FactorPoint, error) {
	rs, err := c.call(ctx, "fund_adj", map[string]string{
		"ts_code":    tsCode,
		"start_date": dateParam(from),
		"end_date":   dateParam(to),
	}, "ts_code,trade_date,adj_factor")
	if err != nil {
		return nil, err
	}

	out := make([]contracts.FactorPoint, 0, rs.Len())
	for i := 0; i < rs.Len(); i++ {
		d, err := rs.date(i, "trade_date")
		if err != nil {
			return nil, err
		}
		f, ok := rs.num(i, "adj_factor")
		if !ok {
			continue
		}
		out = append(out, contracts.FactorPoint{Date: contracts.Day(d), Factor: f})
	}
	sortFactorsAsc(out)
	return out, nil
}

func (c *Client) pricePoints(rs *resultSet, tsCode string) ([]contracts.PricePoint, error) {
	out := make([]contracts.PricePoint, 0, rs.Len())
	for i := 0; i < rs.Len(); i++ {
		d, err := rs.date(i, "trade_date")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tsCode, err)
		}
		close, ok := rs.num(i, "close")
		if !ok {
			// Suspended days ship null closes; skip them.
			continue
		}
		out = append(out, contracts.PricePoint{Date: contracts.Day(d), Close: close})
	}
	sortPricesAsc(out)
	return out, nil
}

// Tushare returns rows newest-first; all downstream code expects ascending.

func sortPricesAsc(points []contracts.PricePoint) {
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
}

func sortFactorsAsc(points []contracts.FactorPoint) {
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
}
