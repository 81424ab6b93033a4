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

// Dataset is the concatenation of every symbol's bars, ordered by (Date, Symbol).
// Columns lists the canonical columns that at least one symbol provided.
type Dataset struct {
	Bars    []NormalizedBar
	Columns []string
}

// Len returns the number of rows.
func (d Dataset) Len() int {
	return len(d.Bars)
}

// Symbols returns the distinct symbols in order of first appearance.
func (d Dataset) Symbols() []string {
	seen := make(map[string]bool)
	var ret []string
	for _, b := range d.Bars {
		if !seen[b.Symbol] {
			seen[b.Symbol] = true
			ret = append(ret, b.Symbol)
		}
	}
	return ret
}

// DateRange returns the earliest and latest Date. Both are empty for an empty Dataset.
func (d Dataset) DateRange() (min, max string) {
	for _, b := range d.Bars {
		if min == "" || b.Date < min {
			min = b.Date
		}
		if b.Date > max {
			max = b.Date
		}
	}
	return
}

// QualityReport holds the diagnostic counters of a Dataset. They are reported,
// never used to reject a run.
type QualityReport struct {
	Rows          int
	UniqueSymbols int
	EarliestDate  string
	LatestDate    string
	Missing       map[string]int
}

// Quality computes the QualityReport of d. Missing only lists columns of d.Columns
// with at least one missing value.
func (d Dataset) Quality() QualityReport {
	min, max := d.DateRange()
	ret := QualityReport{
		Rows:          d.Len(),
		UniqueSymbols: len(d.Symbols()),
		EarliestDate:  min,
		LatestDate:    max,
		Missing:       map[string]int{},
	}
	for _, col := range d.Columns {
		for _, b := range d.Bars {
			if b.Missing(col) {
				ret.Missing[col]++
			}
		}
	}
	return ret
}
