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
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"github.com/ajjensen13/sp500etl/internal/model"
)

// BarRecord is the parquet schema of the dataset snapshot.
type BarRecord struct {
	Date           string   `parquet:"date"`
	Symbol         string   `parquet:"symbol"`
	Open           *float64 `parquet:"open,optional"`
	High           *float64 `parquet:"high,optional"`
	Low            *float64 `parquet:"low,optional"`
	Close          *float64 `parquet:"close,optional"`
	Volume         *float64 `parquet:"volume,optional"`
	CloseChange    *float64 `parquet:"close_change,optional"`
	ClosePctChange *float64 `parquet:"close_pct_change,optional"`
	DailyRange     *float64 `parquet:"daily_range,optional"`
	DailyRangePct  *float64 `parquet:"daily_range_pct,optional"`
}

func float(v decimal.NullDecimal) *float64 {
	if !v.Valid {
		return nil
	}
	f, _ := v.Decimal.Float64()
	return &f
}

// Records converts ds into snapshot records, keeping its order.
func Records(ds model.Dataset) []BarRecord {
	ret := make([]BarRecord, len(ds.Bars))
	for i, b := range ds.Bars {
		ret[i] = BarRecord{
			Date:           b.Date,
			Symbol:         b.Symbol,
			Open:           float(b.Open),
			High:           float(b.High),
			Low:            float(b.Low),
			Close:          float(b.Close),
			Volume:         float(b.Volume),
			CloseChange:    float(b.CloseChange),
			ClosePctChange: float(b.ClosePctChange),
			DailyRange:     float(b.DailyRange),
			DailyRangePct:  float(b.DailyRangePct),
		}
	}
	return ret
}

// WriteParquet writes the snapshot of ds to a new file at path. A partial file is removed.
func WriteParquet(path string, ds model.Dataset) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	err = parquet.Write(f, Records(ds))
	if errClose := f.Close(); err == nil {
		err = errClose
	}
	if err != nil {
		_ = os.Remove(path)
	}
	return err
}
