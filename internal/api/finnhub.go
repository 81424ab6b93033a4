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
	"fmt"
	"github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/cenkalti/backoff/v4"
	"strconv"
	"time"

	"github.com/ajjensen13/sp500etl/internal/model"
	"github.com/ajjensen13/sp500etl/internal/util"
)

// FinnhubSource requests bars from the Finnhub stock candles endpoint.
type FinnhubSource struct {
	Client  *finnhub.DefaultApiService
	APIKey  string
	BackOff func() backoff.BackOff
	Notify  backoff.Notify
}

func NewFinnhubSource(apiKey string, bon backoff.Notify) *FinnhubSource {
	return &FinnhubSource{
		Client:  finnhub.NewAPIClient(finnhub.NewConfiguration()).DefaultApi,
		APIKey:  apiKey,
		BackOff: DefaultBackOff,
		Notify:  bon,
	}
}

func finnhubResolution(i Interval) string {
	switch i {
	case "", Daily:
		return "D"
	default:
		return string(i)
	}
}

func (s *FinnhubSource) Candles(ctx context.Context, req CandlesRequest) (model.RawFrame, error) {
	ctx = context.WithValue(ctx, finnhub.ContextAPIKey, finnhub.APIKey{Key: s.APIKey})
	bo := s.BackOff
	if bo == nil {
		bo = DefaultBackOff
	}

	var in finnhub.StockCandles
	err := retryRateLimited(ctx, bo(), s.Notify, func() error {
		ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
		defer cancel()

		c, httpResp, err := s.Client.StockCandles(ctx, req.Symbol, finnhubResolution(req.Interval), req.From.Unix(), req.To.Unix(), nil)
		if err != nil {
			return handleErr(fmt.Sprintf("error while requesting candle for stock %q", req.Symbol), httpResp, err)
		}
		in = c
		return nil
	})
	if err != nil {
		return model.RawFrame{}, err
	}

	return candlesFrame(req.Symbol, in)
}

func candlesFrame(symbol string, in finnhub.StockCandles) (model.RawFrame, error) {
	ret := model.Flat("Date", "Open", "High", "Low", "Close", "Volume")

	l := len(in.T)
	switch {
	case l == 0:
		return ret, nil
	case len(in.O) != l:
		return ret, fmt.Errorf("len(open) = %d, len(timestamp) = %d for stock %q", len(in.O), l, symbol)
	case len(in.H) != l:
		return ret, fmt.Errorf("len(high) = %d, len(timestamp) = %d for stock %q", len(in.H), l, symbol)
	case len(in.L) != l:
		return ret, fmt.Errorf("len(low) = %d, len(timestamp) = %d for stock %q", len(in.L), l, symbol)
	case len(in.C) != l:
		return ret, fmt.Errorf("len(close) = %d, len(timestamp) = %d for stock %q", len(in.C), l, symbol)
	case len(in.V) != l:
		return ret, fmt.Errorf("len(volume) = %d, len(timestamp) = %d for stock %q", len(in.V), l, symbol)
	}

	ret.Rows = make([][]string, l)
	for ndx, ts := range in.T {
		ret.Rows[ndx] = []string{
			time.Unix(ts, 0).UTC().Format(model.DateLayout),
			f32(in.O[ndx]),
			f32(in.H[ndx]),
			f32(in.L[ndx]),
			f32(in.C[ndx]),
			f32(in.V[ndx]),
		}
	}
	return ret, nil
}

func f32(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}
