// Package tushare is the client for the Tushare Pro JSON API, the primary
// source of ETF closes, adjustment factors and the trading calendar.
package tushare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hxlyu/allweather/pkg/httputil"
	"github.com/hxlyu/allweather/pkg/logger"
)

const DefaultBaseURL = "https://api.tushare.pro"

// Client handles communication with Tushare Pro. Every endpoint is the
// same POST envelope with a different api_name.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	token      string
}

// NewClient creates a Tushare Pro client. baseURL falls back to the public
// endpoint when empty.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
		token:      token,
	}
}

// request is the uniform Tushare Pro request envelope.
type request struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

// response is the uniform envelope. code 0 means success; data is a column
// list plus row tuples.
type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Fields []string            `json:"fields"`
		Items  [][]json.RawMessage `json:"items"`
	} `json:"data"`
}

// APIError is a non-zero Tushare response code, usually a permission or
// rate-limit problem on the account.
type APIError struct {
	APIName string
	Code    int
	Msg     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tushare %s failed with code %d: %s", e.APIName, e.Code, e.Msg)
}

// call posts one API request and returns the parsed result set.
func (c *Client) call(ctx context.Context, apiName string, params map[string]string, fields string) (*resultSet, error) {
	req := request{
		APIName: apiName,
		Token:   c.token,
		Params:  params,
		Fields:  fields,
	}

	resp, err := c.httpClient.PostJSON(ctx, c.baseURL, req)
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

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}
	if parsed.Code != 0 {
		return nil, &APIError{APIName: apiName, Code: parsed.Code, Msg: parsed.Msg}
	}

	rs := newResultSet(parsed.Data.Fields, parsed.Data.Items)

	c.logger.WithFields(map[string]interface{}{
		"api":  apiName,
		"rows": rs.Len(),
	}).Debug("Tushare call done")
	return rs, nil
}

// resultSet wraps the column/tuple layout with name-based accessors.
type resultSet struct {
	index map[string]int
	items [][]json.RawMessage
}

func newResultSet(fields []string, items [][]json.RawMessage) *resultSet {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f] = i
	}
	return &resultSet{index: index, items: items}
}

func (r *resultSet) Len() int {
	return len(r.items)
}

// str reads a string column for row i; empty when missing or null.
func (r *resultSet) str(i int, field string) string {
	col, ok := r.index[field]
	if !ok || col >= len(r.items[i]) {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.items[i][col], &s); err != nil {
		return ""
	}
	return s
}

// num reads a numeric column for row i. Tushare serializes nulls as JSON
// null, which reads as (0, false).
func (r *resultSet) num(i int, field string) (float64, bool) {
	col, ok := r.index[field]
	if !ok || col >= len(r.items[i]) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(r.items[i][col], &f); err != nil {
		return 0, false
	}
	return f, true
}

// date reads a YYYYMMDD column for row i.
func (r *resultSet) date(i int, field string) (time.Time, error) {
	s := r.str(i, field)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing %s in row %d", field, i)
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad %s %q: %w", field, s, err)
	}
	return t, nil
}
