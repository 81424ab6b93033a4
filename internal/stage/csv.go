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


package stage

import (
	"bufio"
	"io"
	"strings"

	"github.com/ajjensen13/sp500etl/internal/model"
)

// NumericPlaces is the number of fractional digits of every numeric field in the artifact.
const NumericPlaces = 4

// WriteCSV writes ds with the full canonical header. Every field is quoted, numbers
// carry NumericPlaces fractional digits and missing values are empty.
func WriteCSV(w io.Writer, ds model.Dataset) error {
	bw := bufio.NewWriter(w)
	if err := writeRecord(bw, model.Columns); err != nil {
		return err
	}
	rec := make([]string, len(model.Columns))
	for _, b := range ds.Bars {
		for i, c := range model.Columns {
			rec[i] = field(b, c)
		}
		if err := writeRecord(bw, rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func field(b model.NormalizedBar, col string) string {
	switch col {
	case model.ColDate:
		return b.Date
	case model.ColSymbol:
		return b.Symbol
	}
	v, ok := b.Numeric(col)
	if !ok || !v.Valid {
		return ""
	}
	return v.Decimal.StringFixed(NumericPlaces)
}

func writeRecord(w *bufio.Writer, rec []string) error {
	for i, f := range rec {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
		if _, err := w.WriteString(strings.ReplaceAll(f, `"`, `""`)); err != nil {
			return err
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}
