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


package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgtype"

	"github.com/ajjensen13/sp500etl/internal/model"
)

// NullIf lists the field values loaded as NULL.
var NullIf = []string{"NULL", "null", "", `\N`}

// Row is one artifact record in warehouse types.
type Row struct {
	Date           pgtype.Date
	Symbol         pgtype.Text
	Open           pgtype.Numeric
	High           pgtype.Numeric
	Low            pgtype.Numeric
	Close          pgtype.Numeric
	Volume         pgtype.Numeric
	CloseChange    pgtype.Numeric
	ClosePctChange pgtype.Numeric
	DailyRange     pgtype.Numeric
	DailyRangePct  pgtype.Numeric
}

func (r *Row) numerics() []*pgtype.Numeric {
	return []*pgtype.Numeric{
		&r.Open, &r.High, &r.Low, &r.Close, &r.Volume,
		&r.CloseChange, &r.ClosePctChange, &r.DailyRange, &r.DailyRangePct,
	}
}

// Values returns the row in Columns order.
func (r Row) Values() []interface{} {
	ret := []interface{}{&r.Date, &r.Symbol}
	for _, n := range r.numerics() {
		ret = append(ret, n)
	}
	return ret
}

func nullIf(s string) bool {
	for _, n := range NullIf {
		if s == n {
			return true
		}
	}
	return false
}

// ParseRecord converts a trimmed artifact record. Missing trailing fields are NULL
// and extra fields are ignored. Rows without a date or symbol are rejected.
func ParseRecord(rec []string) (Row, error) {
	field := func(i int) (string, bool) {
		if i >= len(rec) {
			return "", false
		}
		s := strings.TrimSpace(rec[i])
		return s, !nullIf(s)
	}

	var ret Row

	s, ok := field(0)
	if !ok {
		return Row{}, fmt.Errorf("missing %s", model.ColDate)
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return Row{}, fmt.Errorf("invalid %s %q: %w", model.ColDate, s, err)
	}
	_ = ret.Date.Set(t)

	s, ok = field(1)
	if !ok {
		return Row{}, fmt.Errorf("missing %s", model.ColSymbol)
	}
	_ = ret.Symbol.Set(s)

	for i, n := range ret.numerics() {
		col := i + 2
		s, ok := field(col)
		if !ok {
			_ = n.Set(nil)
			continue
		}
		if err := n.Set(s); err != nil {
			return Row{}, fmt.Errorf("invalid %s %q: %w", model.Columns[col], s, err)
		}
	}

	return ret, nil
}
