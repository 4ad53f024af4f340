package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hxlyu/allweather/pkg/logger"
)

// Client is an HTTP client wrapper with retry logic, request pacing and
// logging. All outbound HTTP requests go through this client.
type Client struct {
	httpClient  *http.Client
	logger      *logger.Logger
	retryConfig RetryConfig
	limiter     *rate.Limiter
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

// New creates a new HTTP client.
func New(log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log,
		retryConfig: RetryConfig{
			MaxRetries:   3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     10 * time.Second,
			Enabled:      true,
		},
	}
}

// NewWithTimeout creates a client with custom timeout.
func NewWithTimeout(log *logger.Logger, timeout time.Duration) *Client {
	client := New(log)
	client.httpClient.Timeout = timeout
	return client
}

// WithRetry configures retry behavior.
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.InitialDelay = initialDelay
	c.retryConfig.Enabled = true
	return c
}

// DisableRetry disables automatic retry.
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// WithRateLimit paces requests to at most rps requests per second. Data
// providers throttle aggressive clients, so fetch paths set this.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}

	return c.do(req)
}

// Post performs a POST request with body.
func (c *Client) Post(ctx context.Context, url string, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create POST request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	return c.do(req)
}

// PostJSON performs a POST request with JSON body.
func (c *Client) PostJSON(ctx context.Context, url string, data interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return c.Post(ctx, url, "application/json", bytes.NewReader(jsonData))
}

// do executes the request with pacing, retry and logging.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	startTime := time.Now()
	url := req.URL.String()
	method := req.Method

	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"method": method,
		"url":    url,
	}).Debug("HTTP request started")

	if c.retryConfig.Enabled {
		resp, err = c.doWithRetry(req)
	} else {
		resp, err = c.httpClient.Do(req)
	}

	duration := time.Since(startTime)

	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"method":   method,
			"url":      url,
			"duration": duration,
			"error":    err.Error(),
		}).Error("HTTP request failed")
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": resp.StatusCode,
		"duration":    duration,
	}).Debug("HTTP request completed")

	return resp, nil
}

// doWithRetry executes the request with exponential backoff retry
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	delay := c.retryConfig.InitialDelay

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, fmt.Errorf("failed to rewind request body: %w", bodyErr)
			}
			req.Body = body
		}

		resp, err = c.httpClient.Do(req)

		// Success
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		// Last attempt - return error
		if attempt == c.retryConfig.MaxRetries {
			break
		}

		// Drain the failed response so the connection can be reused.
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   delay,
			"url":     req.URL.String(),
		}).Warn("Retrying HTTP request")

		time.Sleep(delay)

		// Exponential backoff
		delay *= 2
		if delay > c.retryConfig.MaxDelay {
			delay = c.retryConfig.MaxDelay
		}
	}

	return resp, err
}
