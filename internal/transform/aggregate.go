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


package transform

import (
	"cloud.google.com/go/logging"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/ajjensen13/sp500etl/internal/extract"
	"github.com/ajjensen13/sp500etl/internal/model"
	"github.com/ajjensen13/sp500etl/internal/util"
)

var ErrEmptyAggregateResult = errors.New("no data fetched for any symbols")

// SymbolError is the failure of a single symbol. It never aborts a run.
type SymbolError struct {
	Symbol string
	Err    error
	Stack  []byte
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("error processing %s: %v", e.Symbol, e.Err)
}

func (e *SymbolError) Unwrap() error {
	return e.Err
}

// SymbolResult is the outcome for one symbol. Err is set when the symbol failed;
// Bars is empty when the source had nothing for the window.
type SymbolResult struct {
	Symbol  string
	Bars    []model.NormalizedBar
	Columns []string
	Err     *SymbolError
}

// Symbols fetches and normalizes every symbol in turn. A failing symbol is logged and
// recorded in its result; the others are not affected. Cancelling ctx stops the loop.
func Symbols(ctx context.Context, src extract.PriceSource, symbols []string, from, to time.Time) []SymbolResult {
	ret := make([]SymbolResult, 0, len(symbols))
	for i, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			util.Logf(ctx, logging.Warning, "stopping after %d of %d symbols: %v", i, len(symbols), err)
			break
		}
		ctx := util.WithLoggerValue(ctx, "symbol", symbol)
		util.Logf(ctx, logging.Debug, "processing %s (%d/%d)", symbol, i+1, len(symbols))

		r := symbolResult(ctx, src, symbol, from, to)
		switch {
		case r.Err != nil:
			util.Logf(ctx, logging.Error, "%v (%T)\n%s", r.Err, r.Err.Err, r.Err.Stack)
		case len(r.Bars) == 0:
			util.Logf(ctx, logging.Info, "%s: no valid data for the window", symbol)
		default:
			util.Logf(ctx, logging.Info, "%s: %d rows, columns: %v", symbol, len(r.Bars), r.Columns)
		}
		ret = append(ret, r)
	}
	return ret
}

func symbolResult(ctx context.Context, src extract.PriceSource, symbol string, from, to time.Time) (ret SymbolResult) {
	ret.Symbol = symbol
	defer func() {
		if p := recover(); p != nil {
			ret.Bars, ret.Columns = nil, nil
			ret.Err = &SymbolError{Symbol: symbol, Err: fmt.Errorf("panic: %v", p), Stack: debug.Stack()}
		}
	}()

	f, err := extract.FetchBars(ctx, src, symbol, from, to)
	if err != nil {
		ret.Err = &SymbolError{Symbol: symbol, Err: err, Stack: debug.Stack()}
		return
	}
	if f.Empty() {
		return
	}

	bars, cols, err := Normalize(ctx, symbol, f)
	if err != nil {
		ret.Err = &SymbolError{Symbol: symbol, Err: err, Stack: debug.Stack()}
		return
	}
	ret.Bars, ret.Columns = bars, cols
	return
}

// Aggregate concatenates the successful results ordered by (Date, Symbol).
// Nothing to concatenate is ErrEmptyAggregateResult.
func Aggregate(ctx context.Context, results []SymbolResult) (model.Dataset, error) {
	var ds model.Dataset
	provided := map[string]bool{}
	for _, r := range results {
		if r.Err != nil || len(r.Bars) == 0 {
			continue
		}
		ds.Bars = append(ds.Bars, r.Bars...)
		for _, c := range r.Columns {
			provided[c] = true
		}
	}

	if ds.Len() == 0 {
		return model.Dataset{}, ErrEmptyAggregateResult
	}

	for _, c := range model.Columns {
		if provided[c] {
			ds.Columns = append(ds.Columns, c)
		}
	}

	sort.SliceStable(ds.Bars, func(i, j int) bool {
		a, b := ds.Bars[i], ds.Bars[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Symbol < b.Symbol
	})

	q := ds.Quality()
	util.Logf(ctx, logging.Info, "total rows: %d", q.Rows)
	util.Logf(ctx, logging.Info, "unique symbols: %d", q.UniqueSymbols)
	util.Logf(ctx, logging.Info, "date range: %s to %s", q.EarliestDate, q.LatestDate)
	for _, c := range ds.Columns {
		if n := q.Missing[c]; n > 0 {
			util.Logf(ctx, logging.Info, "missing values in %s: %d", c, n)
		}
	}

	return ds, nil
}
