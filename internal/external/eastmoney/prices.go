package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hxlyu/allweather/internal/contracts"
)

// klineResponse is the envelope of the kline endpoint. Each kline entry is
// a comma-separated "date,open,close,high,low,..." string.
type klineResponse struct {
	Data *struct {
		Code   string   `json:"code"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// FetchPrices fetches daily closes for cross-validation. Prices here are
// unadjusted; comparisons happen on returns, not levels, where the
// adjustment cancels out between split dates.
func (c *Client) FetchPrices(ctx context.Context, tsCode string, from, to time.Time) ([]contracts.PricePoint, error) {
	sid, err := secID(tsCode)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("secid", sid)
	params.Set("klt", "101") // daily bars
	params.Set("fqt", "0")   // no adjustment
	params.Set("beg", from.Format("20060102"))
	params.Set("end", to.Format("20060102"))
	params.Set("fields1", "f1,f2,f3")
	params.Set("fields2", "f51,f52,f53")

	fullURL := fmt.Sprintf("%s/api/qt/stock/kline/get?%s", c.baseURL, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	points, err := parseKlines(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tsCode, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"code":  tsCode,
		"count": len(points),
	}).Debug("Fetched second-source prices")
	return points, nil
}

// parseKlines extracts (date, close) pairs from the kline strings. The
// close is field index 2 after date and open.
func parseKlines(body []byte) ([]contracts.PricePoint, error) {
	var parsed klineResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}
	if parsed.Data == nil {
		return nil, fmt.Errorf("empty data section")
	}

	out := make([]contracts.PricePoint, 0, len(parsed.Data.Klines))
	for _, line := range parsed.Data.Klines {
		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			return nil, fmt.Errorf("malformed kline %q", line)
		}

		d, err := time.Parse("2006-01-02", parts[0])
		if err != nil {
			return nil, fmt.Errorf("bad kline date %q: %w", parts[0], err)
		}
		close, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("bad kline close %q: %w", parts[2], err)
		}

		out = append(out, contracts.PricePoint{Date: contracts.Day(d), Close: close})
	}
	return out, nil
}
