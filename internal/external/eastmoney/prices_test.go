package eastmoney

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxlyu/allweather/pkg/httputil"
	"github.com/hxlyu/allweather/pkg/logger"
)

func TestSecID(t *testing.T) {
	sid, err := secID("510300.SH")
	require.NoError(t, err)
	assert.Equal(t, "1.510300", sid)

	sid, err = secID("159915.SZ")
	require.NoError(t, err)
	assert.Equal(t, "0.159915", sid)

	_, err = secID("510300")
	assert.Error(t, err)
}

func TestFetchPrices(t *testing.T) {
	var gotSecID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecID = r.URL.Query().Get("secid")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"code":"510300","klines":[
			"2024-01-02,3.400,3.412,3.420,3.395",
			"2024-01-03,3.412,3.430,3.440,3.410"
		]}}`))
	}))
	defer srv.Close()

	log := logger.NewWriter(io.Discard, "error")
	client := NewClient(httputil.New(log).DisableRetry(), log, srv.URL)

	points, err := client.FetchPrices(context.Background(),
		"510300.SH",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "1.510300", gotSecID)
	require.Len(t, points, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.Equal(t, 3.412, points[0].Close)
	assert.Equal(t, 3.430, points[1].Close)
}

func TestParseKlinesErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "null data", body: `{"data":null}`},
		{name: "malformed line", body: `{"data":{"klines":["2024-01-02"]}}`},
		{name: "bad close", body: `{"data":{"klines":["2024-01-02,3.4,abc"]}}`},
		{name: "not json", body: `jQuery({})`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseKlines([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}
