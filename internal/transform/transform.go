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
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajjensen13/sp500etl/internal/model"
	"github.com/ajjensen13/sp500etl/internal/util"
)

var ErrMissingDateColumn = errors.New("no Date column found")

var renames = map[string]string{
	"Adj Close": model.ColAdjClose,
	"AdjClose":  model.ColAdjClose,
}

// Reconcile returns f with single level headers: hierarchical headers keep their
// first level and, when several collapse to the same name, the first one wins.
// Adjusted close variants are renamed to Adj_Close.
func Reconcile(f model.RawFrame) (model.RawFrame, error) {
	var keep []int
	var names []string
	seen := map[string]bool{}
	for i, k := range f.Columns {
		name := strings.TrimSpace(k.Name())
		if n, ok := renames[name]; ok {
			name = n
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		keep = append(keep, i)
		names = append(names, name)
	}

	if !seen[model.ColDate] {
		return model.RawFrame{}, fmt.Errorf("%w, available columns: %v", ErrMissingDateColumn, names)
	}

	ret := model.Flat(names...)
	ret.Rows = make([][]string, len(f.Rows))
	for r, row := range f.Rows {
		out := make([]string, len(keep))
		for i, c := range keep {
			if c < len(row) {
				out[i] = row[c]
			}
		}
		ret.Rows[r] = out
	}
	return ret, nil
}

var nullMarkers = map[string]bool{
	"":     true,
	"nan":  true,
	"none": true,
	"null": true,
	"n/a":  true,
	"<na>": true,
	"nat":  true,
	`\n`:   true,
}

func missing(s string) bool {
	return nullMarkers[strings.ToLower(strings.TrimSpace(s))]
}

var dateLayouts = []string{
	model.DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

// ParseDate formats s as YYYY-MM-DD. The date is taken in the zone s carries.
func ParseDate(s string) (string, bool) {
	if missing(s) {
		return "", false
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(model.DateLayout), true
		}
	}
	return "", false
}

// ParseNumber coerces s to a decimal. Null markers and unparsable values are missing.
func ParseNumber(s string) decimal.NullDecimal {
	if missing(s) {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

const (
	pricePlaces  = 2
	metricPlaces = 4
)

var hundred = decimal.NewFromInt(100)

func round(v decimal.NullDecimal, places int32) decimal.NullDecimal {
	if !v.Valid {
		return v
	}
	return decimal.NullDecimal{Decimal: v.Decimal.RoundBank(places), Valid: true}
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// Normalize turns the bars of one symbol into NormalizedBars ordered by date.
// Rows without a date or close are dropped. The returned columns are the canonical
// columns the frame could provide.
func Normalize(ctx context.Context, symbol string, f model.RawFrame) ([]model.NormalizedBar, []string, error) {
	util.Logf(ctx, logging.Debug, "%s - frame shape: (%d, %d)", symbol, len(f.Rows), len(f.Columns))
	util.Logf(ctx, logging.Debug, "%s - columns: %v", symbol, f.Columns)

	f, err := Reconcile(f)
	if err != nil {
		return nil, nil, err
	}
	util.Logf(ctx, logging.Debug, "%s - reconciled columns: %v", symbol, f.Names())

	index := map[string]int{}
	for i, n := range f.Names() {
		index[n] = i
	}
	get := func(row []string, col string) (string, bool) {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return "", false
		}
		return row[i], true
	}
	num := func(row []string, col string, places int32) decimal.NullDecimal {
		s, ok := get(row, col)
		if !ok {
			return decimal.NullDecimal{}
		}
		return round(ParseNumber(s), places)
	}

	bars := make([]model.NormalizedBar, 0, len(f.Rows))
	for _, row := range f.Rows {
		s, _ := get(row, model.ColDate)
		date, ok := ParseDate(s)
		if !ok {
			continue
		}
		b := model.NormalizedBar{
			Date:           date,
			Symbol:         symbol,
			Open:           num(row, model.ColOpen, pricePlaces),
			High:           num(row, model.ColHigh, pricePlaces),
			Low:            num(row, model.ColLow, pricePlaces),
			Close:          num(row, model.ColClose, pricePlaces),
			Volume:         num(row, model.ColVolume, pricePlaces),
			CloseChange:    num(row, model.ColCloseChange, metricPlaces),
			ClosePctChange: num(row, model.ColClosePctChange, metricPlaces),
			DailyRange:     num(row, model.ColDailyRange, metricPlaces),
			DailyRangePct:  num(row, model.ColDailyRangePct, metricPlaces),
		}
		if !b.Close.Valid {
			continue
		}
		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date < bars[j].Date
	})

	has := func(col string) bool {
		_, ok := index[col]
		return ok
	}

	// metrics already in the frame are kept as they are, the others are derived
	derived := map[string]bool{}
	if has(model.ColClose) {
		derived[model.ColCloseChange] = !has(model.ColCloseChange)
		derived[model.ColClosePctChange] = !has(model.ColClosePctChange)
		closeChanges(bars, derived[model.ColCloseChange], derived[model.ColClosePctChange])
	}
	if has(model.ColHigh) && has(model.ColLow) {
		derived[model.ColDailyRange] = !has(model.ColDailyRange)
		derived[model.ColDailyRangePct] = !has(model.ColDailyRangePct)
		dailyRanges(bars, derived[model.ColDailyRange], derived[model.ColDailyRangePct])
	}

	cols := []string{model.ColDate, model.ColSymbol}
	for _, c := range model.NumericColumns {
		if has(c) || derived[c] {
			cols = append(cols, c)
		}
	}

	return bars, cols, nil
}

// closeChanges sets the difference to the previous close. The first bar gets 0.
func closeChanges(bars []model.NormalizedBar, change, pct bool) {
	for i := range bars {
		b := &bars[i]
		if i == 0 {
			if change {
				b.CloseChange = valid(decimal.Zero)
			}
			if pct {
				b.ClosePctChange = valid(decimal.Zero)
			}
			continue
		}
		prev := bars[i-1].Close.Decimal
		diff := b.Close.Decimal.Sub(prev)
		if change {
			b.CloseChange = round(valid(diff), metricPlaces)
		}
		if pct {
			b.ClosePctChange = valid(decimal.Zero)
			if !prev.IsZero() {
				b.ClosePctChange = round(valid(diff.Div(prev).Mul(hundred)), metricPlaces)
			}
		}
	}
}

// dailyRanges sets High - Low. The percentage is 0 when Low is zero or either bound is missing.
func dailyRanges(bars []model.NormalizedBar, rng, pct bool) {
	for i := range bars {
		b := &bars[i]
		r := decimal.NullDecimal{}
		if b.High.Valid && b.Low.Valid {
			r = round(valid(b.High.Decimal.Sub(b.Low.Decimal)), metricPlaces)
		}
		if rng {
			b.DailyRange = r
		}
		if pct {
			b.DailyRangePct = valid(decimal.Zero)
			if r.Valid && !b.Low.Decimal.IsZero() {
				b.DailyRangePct = round(valid(r.Decimal.Div(b.Low.Decimal).Mul(hundred)), metricPlaces)
			}
		}
	}
}
