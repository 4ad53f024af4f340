package tushare

import (
	"context"
	"sort"
	"time"

	"github.com/hxlyu/allweather/internal/contracts"
)

// FetchTradeCalendar fetches the open trading dates for the SSE exchange
// between from and to, ascending.
func (c *Client) FetchTradeCalendar(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	rs, err := c.call(ctx, "trade_cal", map[string]string{
		"exchange":   "SSE",
		"start_date": dateParam(from),
		"end_date":   dateParam(to),
		"is_open":    "1",
	}, "cal_date,is_open")
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, 0, rs.Len())
	for i := 0; i < rs.Len(); i++ {
		d, err := rs.date(i, "cal_date")
		if err != nil {
			return nil, err
		}
		out = append(out, contracts.Day(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}
