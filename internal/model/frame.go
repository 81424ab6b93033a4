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

// ColumnKey is a column header. Flat headers have one level; hierarchical headers
// carry further levels, e.g. {"Close", "AAPL"}.
type ColumnKey []string

// Name returns the first header level.
func (k ColumnKey) Name() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

// RawFrame is a bar series as returned by a price source, before reconciliation.
// Cells hold the provider's text; empty cells and null markers mean missing.
type RawFrame struct {
	Columns []ColumnKey
	Rows    [][]string
}

// Empty reports whether the frame holds no rows.
func (f RawFrame) Empty() bool {
	return len(f.Rows) == 0
}

// MultiLevel reports whether any header has more than one level.
func (f RawFrame) MultiLevel() bool {
	for _, k := range f.Columns {
		if len(k) > 1 {
			return true
		}
	}
	return false
}

// Names returns the first level of every header.
func (f RawFrame) Names() []string {
	ret := make([]string, len(f.Columns))
	for i, k := range f.Columns {
		ret[i] = k.Name()
	}
	return ret
}

// Flat builds a RawFrame with single level headers.
func Flat(names ...string) RawFrame {
	cols := make([]ColumnKey, len(names))
	for i, n := range names {
		cols[i] = ColumnKey{n}
	}
	return RawFrame{Columns: cols}
}
