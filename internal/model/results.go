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
	"time"
)

// SymbolList is the result of the symbol listing stage.
type SymbolList struct {
	Symbols    []string
	TotalFound int // valid symbols before the optional cap was applied
}

// Artifact is the result of the price stage: the serialized Dataset on local disk.
type Artifact struct {
	Path         string
	SnapshotPath string // optional parquet copy of the same Dataset
	RowCount     int
	SymbolCount  int
	Quality      QualityReport
}

// Upload is the result of the upload stage.
type Upload struct {
	Bucket   string
	Key      string
	Location string
	FileName string
}

// LoadInfo is the result of the warehouse stage.
type LoadInfo struct {
	RowsParsed   int64
	RowsLoaded   int64
	RowsSkipped  int64
	Verification Verification
}

// Verification is the state of the warehouse table after a load.
type Verification struct {
	TotalRows     int64
	UniqueSymbols int64
	EarliestDate  time.Time
	LatestDate    time.Time
}

// Results collects the stage results of one run. A nil field means the stage did not complete.
type Results struct {
	RunID     string
	Symbols   *SymbolList
	Artifact  *Artifact
	Upload    *Upload
	Load      *LoadInfo
	StartedAt time.Time
	EndedAt   time.Time
}
