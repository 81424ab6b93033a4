package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/sp500etl/internal/model"
)

const chartBody = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "BRK-B", "gmtoffset": -14400, "exchangeTimezoneName": "America/New_York"},
      "timestamp": [1704202200, 1704288600],
      "indicators": {
        "quote": [{
          "open": [100.5, 101],
          "high": [102.25, null],
          "low": [99.75, 100],
          "close": [101.5, 100.5],
          "volume": [1000, 2000]
        }],
        "adjclose": [{"adjclose": [101.4, 100.4]}]
      }
    }],
    "error": null
  }
}`

func testBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
}

func newTestYahoo(url string) *YahooSource {
	return &YahooSource{Client: http.DefaultClient, BaseURL: url, MultiLevel: true, BackOff: testBackOff}
}

func TestYahooSource_Candles(t *testing.T) {
	var path, query, agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, query, agent = r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 2)
	f, err := newTestYahoo(srv.URL).Candles(context.Background(), CandlesRequest{Symbol: "BRK.B", Interval: Daily, From: from, To: to})
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/BRK-B", path)
	assert.Contains(t, query, "interval=1d")
	assert.Contains(t, query, "includePrePost=false")
	assert.Contains(t, query, fmt.Sprintf("period1=%d", from.Unix()))
	assert.Equal(t, UserAgent, agent)

	require.True(t, f.MultiLevel())
	assert.Equal(t, []string{"Date", "Adj Close", "Close", "High", "Low", "Open", "Volume"}, f.Names())
	assert.Equal(t, model.ColumnKey{"Close", "BRK.B"}, f.Columns[2])
	assert.Equal(t, [][]string{
		{"2024-01-02", "101.4", "101.5", "102.25", "99.75", "100.5", "1000"},
		{"2024-01-03", "100.4", "100.5", "", "100", "101", "2000"},
	}, f.Rows)
}

func TestYahooSource_CandlesFlat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	s := newTestYahoo(srv.URL)
	s.MultiLevel = false
	f, err := s.Candles(context.Background(), CandlesRequest{Symbol: "BRK.B"})
	require.NoError(t, err)
	assert.False(t, f.MultiLevel())
	assert.Len(t, f.Rows, 2)
}

func TestYahooSource_RetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	var notified int
	s := newTestYahoo(srv.URL)
	s.Notify = func(err error, d time.Duration) {
		assert.True(t, errors.Is(err, ErrTooManyRequests))
		notified++
	}

	f, err := s.Candles(context.Background(), CandlesRequest{Symbol: "AAA"})
	require.NoError(t, err)
	assert.Len(t, f.Rows, 2)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, 2, notified)
}

func TestYahooSource_OtherErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "no such symbol", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestYahoo(srv.URL).Candles(context.Background(), CandlesRequest{Symbol: "ZZZZ"})
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Contains(t, err.Error(), "no such symbol")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestYahooSource_ChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	_, err := newTestYahoo(srv.URL).Candles(context.Background(), CandlesRequest{Symbol: "GONE"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestYahooSource_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"AAA"},"indicators":{"quote":[{}]}}],"error":null}}`)
	}))
	defer srv.Close()

	f, err := newTestYahoo(srv.URL).Candles(context.Background(), CandlesRequest{Symbol: "AAA"})
	require.NoError(t, err)
	assert.True(t, f.Empty())
}
