// Package eastmoney is the client for the Eastmoney kline API, the second
// source used to cross-validate Tushare closes.
package eastmoney

import (
	"fmt"
	"strings"

	"github.com/hxlyu/allweather/pkg/httputil"
	"github.com/hxlyu/allweather/pkg/logger"
)

const DefaultBaseURL = "https://push2his.eastmoney.com"

type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
	}
}

// secID converts a Tushare-style code to Eastmoney's secid: market prefix
// 1 for Shanghai, 0 for Shenzhen.
func secID(tsCode string) (string, error) {
	switch {
	case strings.HasSuffix(tsCode, ".SH"):
		return "1." + strings.TrimSuffix(tsCode, ".SH"), nil
	case strings.HasSuffix(tsCode, ".SZ"):
		return "0." + strings.TrimSuffix(tsCode, ".SZ"), nil
	}
	return "", fmt.Errorf("unsupported code %q: want a .SH or .SZ suffix", tsCode)
}
