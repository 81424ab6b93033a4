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


package model

import (
	"github.com/shopspring/decimal"
)

const (
	ColDate           = "Date"
	ColSymbol         = "Symbol"
	ColOpen           = "Open"
	ColHigh           = "High"
	ColLow            = "Low"
	ColClose          = "Close"
	ColAdjClose       = "Adj_Close"
	ColVolume         = "Volume"
	ColCloseChange    = "Close_Change"
	ColClosePctChange = "Close_Pct_Change"
	ColDailyRange     = "Daily_Range"
	ColDailyRangePct  = "Daily_Range_Pct"
)

// Columns is the canonical column order of a NormalizedBar. It is also the header
// of the run artifact and the column order of the warehouse table.
var Columns = []string{
	ColDate, ColSymbol, ColOpen, ColHigh, ColLow, ColClose, ColVolume,
	ColCloseChange, ColClosePctChange, ColDailyRange, ColDailyRangePct,
}

// NumericColumns are the Columns holding decimal values.
var NumericColumns = Columns[2:]

// DateLayout is the layout of NormalizedBar.Date.
const DateLayout = "2006-01-02"

// NormalizedBar is one daily bar for one symbol after schema reconciliation.
// Date, Symbol and Close are always set; every other value may be missing.
type NormalizedBar struct {
	Date           string
	Symbol         string
	Open           decimal.NullDecimal
	High           decimal.NullDecimal
	Low            decimal.NullDecimal
	Close          decimal.NullDecimal
	Volume         decimal.NullDecimal
	CloseChange    decimal.NullDecimal
	ClosePctChange decimal.NullDecimal
	DailyRange     decimal.NullDecimal
	DailyRangePct  decimal.NullDecimal
}

// Numeric returns the value of the numeric column col. ok is false for unknown columns.
func (b NormalizedBar) Numeric(col string) (v decimal.NullDecimal, ok bool) {
	switch col {
	case ColOpen:
		return b.Open, true
	case ColHigh:
		return b.High, true
	case ColLow:
		return b.Low, true
	case ColClose:
		return b.Close, true
	case ColVolume:
		return b.Volume, true
	case ColCloseChange:
		return b.CloseChange, true
	case ColClosePctChange:
		return b.ClosePctChange, true
	case ColDailyRange:
		return b.DailyRange, true
	case ColDailyRangePct:
		return b.DailyRangePct, true
	default:
		return decimal.NullDecimal{}, false
	}
}

// Missing reports whether the value of col is missing.
func (b NormalizedBar) Missing(col string) bool {
	switch col {
	case ColDate:
		return b.Date == ""
	case ColSymbol:
		return b.Symbol == ""
	}
	v, ok := b.Numeric(col)
	return !ok || !v.Valid
}
