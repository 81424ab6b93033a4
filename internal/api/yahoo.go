/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/


package api

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/cenkalti/backoff/v4"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ajjensen13/sp500etl/internal/model"
	"github.com/ajjensen13/sp500etl/internal/util"
)

const YahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource requests bars from the Yahoo Finance chart API.
type YahooSource struct {
	Client  *http.Client
	BaseURL string
	// MultiLevel qualifies every price column with the symbol, e.g. ("Close", "AAPL"),
	// the way multi ticker downloads are shaped.
	MultiLevel bool
	BackOff    func() backoff.BackOff
	Notify     backoff.Notify
}

func NewYahooSource(client *http.Client, bon backoff.Notify) *YahooSource {
	return &YahooSource{
		Client:     client,
		BaseURL:    YahooBaseURL,
		MultiLevel: true,
		BackOff:    DefaultBackOff,
		Notify:     bon,
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []yahooResult `json:"result"`
		Error  *yahooError   `json:"error"`
	} `json:"chart"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		GmtOffset            int    `json:"gmtoffset"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// yahooSymbol maps class share separators to the form the chart API expects (BRK.B -> BRK-B).
func yahooSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, ".", "-")
}

func (s *YahooSource) chartURL(req CandlesRequest) string {
	base := s.BaseURL
	if base == "" {
		base = YahooBaseURL
	}
	interval := req.Interval
	if interval == "" {
		interval = Daily
	}
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(req.From.Unix(), 10))
	q.Set("period2", strconv.FormatInt(req.To.Unix(), 10))
	q.Set("interval", string(interval))
	q.Set("includePrePost", strconv.FormatBool(req.PrePost))
	q.Set("events", "div,splits")
	return fmt.Sprintf("%s/v8/finance/chart/%s?%s", strings.TrimRight(base, "/"), url.PathEscape(yahooSymbol(req.Symbol)), q.Encode())
}

func (s *YahooSource) Candles(ctx context.Context, req CandlesRequest) (model.RawFrame, error) {
	var chart yahooChartResponse
	bo := s.BackOff
	if bo == nil {
		bo = DefaultBackOff
	}

	err := retryRateLimited(ctx, bo(), s.Notify, func() error {
		ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
		defer cancel()

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.chartURL(req), nil)
		if err != nil {
			return fmt.Errorf("failed to create chart request for %q: %w", req.Symbol, err)
		}
		httpReq.Header.Set("User-Agent", UserAgent)
		httpReq.Header.Set("Accept", "application/json")

		resp, err := s.Client.Do(httpReq)
		if err != nil {
			return handleErr(fmt.Sprintf("error while requesting chart for stock %q", req.Symbol), resp, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return handleErr(fmt.Sprintf("error while requesting chart for stock %q", req.Symbol), resp, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status})
		}

		chart = yahooChartResponse{}
		err = json.NewDecoder(resp.Body).Decode(&chart)
		if err != nil {
			return fmt.Errorf("failed to decode chart for stock %q: %w", req.Symbol, err)
		}
		return nil
	})
	if err != nil {
		return model.RawFrame{}, err
	}

	if e := chart.Chart.Error; e != nil {
		return model.RawFrame{}, fmt.Errorf("chart request for stock %q failed: %s: %s", req.Symbol, e.Code, e.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return model.RawFrame{}, nil
	}

	return s.frame(req.Symbol, chart.Chart.Result[0]), nil
}

func (s *YahooSource) frame(symbol string, r yahooResult) model.RawFrame {
	// the column order follows yfinance: the index first, then prices sorted by name
	names := []string{"Adj Close", "Close", "High", "Low", "Open", "Volume"}
	ret := model.RawFrame{Columns: make([]model.ColumnKey, 0, len(names)+1)}
	if s.MultiLevel {
		ret.Columns = append(ret.Columns, model.ColumnKey{"Date", ""})
		for _, n := range names {
			ret.Columns = append(ret.Columns, model.ColumnKey{n, symbol})
		}
	} else {
		ret.Columns = append(ret.Columns, model.ColumnKey{"Date"})
		for _, n := range names {
			ret.Columns = append(ret.Columns, model.ColumnKey{n})
		}
	}

	if len(r.Timestamp) == 0 || len(r.Indicators.Quote) == 0 {
		return ret
	}

	tz := time.UTC
	if r.Meta.ExchangeTimezoneName != "" || r.Meta.GmtOffset != 0 {
		tz = time.FixedZone(r.Meta.ExchangeTimezoneName, r.Meta.GmtOffset)
	}

	q := r.Indicators.Quote[0]
	var adj []*float64
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	ret.Rows = make([][]string, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		ret.Rows[i] = []string{
			time.Unix(ts, 0).In(tz).Format(model.DateLayout),
			cell(adj, i),
			cell(q.Close, i),
			cell(q.High, i),
			cell(q.Low, i),
			cell(q.Open, i),
			cell(q.Volume, i),
		}
	}
	return ret
}

func cell(vs []*float64, i int) string {
	if i >= len(vs) || vs[i] == nil {
		return ""
	}
	return strconv.FormatFloat(*vs[i], 'f', -1, 64)
}
