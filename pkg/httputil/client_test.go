package httputil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxlyu/allweather/pkg/logger"
)

func newTestLogger() *logger.Logger {
	return logger.NewWriter(io.Discard, "error")
}

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	client := New(newTestLogger()).DisableRetry()
	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "fund_daily", payload["api_name"])

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(newTestLogger()).DisableRetry()
	resp, err := client.PostJSON(context.Background(), server.URL, map[string]string{"api_name": "fund_daily"})
	require.NoError(t, err)
	resp.Body.Close()
}

func TestRetryOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(newTestLogger()).WithRetry(3, time.Millisecond)
	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetryResendsPostBody(t *testing.T) {
	// The retry must rewind the body; without that a retried POST arrives
	// with an empty payload after the first attempt drained it.
	var calls int32
	bodies := make(chan string, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		bodies <- string(body)

		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(newTestLogger()).WithRetry(2, time.Millisecond)
	resp, err := client.PostJSON(context.Background(), server.URL, map[string]string{"api_name": "fund_adj"})
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
	first, second := <-bodies, <-bodies
	assert.JSONEq(t, `{"api_name":"fund_adj"}`, first)
	assert.Equal(t, first, second)
}

func TestRateLimitHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// One request per minute with no burst left after the first call.
	client := New(newTestLogger()).DisableRetry().WithRateLimit(1.0/60.0, 1)

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Get(ctx, server.URL)
	assert.Error(t, err, "second request should fail waiting for the limiter")
}
