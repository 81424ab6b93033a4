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
	"cloud.google.com/go/logging"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/ajjensen13/sp500etl/internal/model"
	"github.com/ajjensen13/sp500etl/internal/util"
)

// DefaultTable is the warehouse table created by the migrations.
const DefaultTable = "stock_data"

// Columns are the target columns of a load, in artifact order.
var Columns = func() []string {
	ret := make([]string, len(model.Columns))
	for i, c := range model.Columns {
		ret[i] = strings.ToLower(c)
	}
	return ret
}()

// Warehouse loads artifacts into a Postgres table.
type Warehouse struct {
	Pool  *pgxpool.Pool
	Table pgx.Identifier
}

// NewWarehouse returns a Warehouse for table, which may be schema qualified.
func NewWarehouse(pool *pgxpool.Pool, table string) *Warehouse {
	if table == "" {
		table = DefaultTable
	}
	return &Warehouse{Pool: pool, Table: pgx.Identifier(strings.Split(table, "."))}
}

// CopyInto bulk copies the artifact read from r into the table in a single transaction.
// Malformed rows are skipped and counted; anything else aborts the copy.
func (w *Warehouse) CopyInto(ctx context.Context, r io.Reader) (model.LoadInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, util.LongReqTimeout)
	defer cancel()

	var info model.LoadInfo
	rows := make(chan []interface{}, 256)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return readRows(ctx, r, rows, &info)
	})
	g.Go(func() error {
		return util.RunTx(ctx, w.Pool, func(ctx context.Context, tx pgx.Tx) error {
			n, err := tx.CopyFrom(ctx, w.Table, Columns, &rowSource{ctx: ctx, rows: rows})
			if err != nil {
				return fmt.Errorf("failed to copy into %s: %w", w.Table.Sanitize(), err)
			}
			info.RowsLoaded = n
			return nil
		})
	})

	if err := g.Wait(); err != nil {
		return model.LoadInfo{}, err
	}
	return info, nil
}

// readRows sends every well formed record after the header to out. out is only closed
// once r is fully read, so a failed read never ends the copy early.
func readRows(ctx context.Context, r io.Reader, out chan<- []interface{}, info *model.LoadInfo) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header := true
	for {
		rec, err := cr.Read()
		var pe *csv.ParseError
		switch {
		case errors.Is(err, io.EOF):
			close(out)
			return nil
		case errors.As(err, &pe):
			header = false
			info.RowsParsed++
			info.RowsSkipped++
			util.Logf(ctx, logging.Warning, "skipping malformed row: %v", err)
			continue
		case err != nil:
			return fmt.Errorf("failed to read artifact: %w", err)
		}

		if header {
			header = false
			continue
		}

		info.RowsParsed++
		row, err := ParseRecord(rec)
		if err != nil {
			info.RowsSkipped++
			util.Logf(ctx, logging.Warning, "skipping row %d: %v", info.RowsParsed, err)
			continue
		}

		select {
		case out <- row.Values():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type rowSource struct {
	ctx  context.Context
	rows <-chan []interface{}
	cur  []interface{}
	err  error
}

func (s *rowSource) Next() bool {
	select {
	case row, ok := <-s.rows:
		if !ok {
			return false
		}
		s.cur = row
		return true
	case <-s.ctx.Done():
		s.err = s.ctx.Err()
		return false
	}
}

func (s *rowSource) Values() ([]interface{}, error) {
	return s.cur, nil
}

func (s *rowSource) Err() error {
	return s.err
}

// Verify summarizes the table after a load.
func (w *Warehouse) Verify(ctx context.Context) (ret model.Verification, err error) {
	ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
	defer cancel()

	sql := `
		SELECT
			COUNT(*) AS total_rows,
			COUNT(DISTINCT symbol) AS unique_symbols,
			MIN(date) AS earliest_date,
			MAX(date) AS latest_date
		FROM ` + w.Table.Sanitize()

	var earliest, latest pgtype.Date
	err = w.Pool.QueryRow(ctx, sql).Scan(&ret.TotalRows, &ret.UniqueSymbols, &earliest, &latest)
	if err != nil {
		return model.Verification{}, fmt.Errorf("failed to verify %s: %w", w.Table.Sanitize(), err)
	}
	if earliest.Status == pgtype.Present {
		ret.EarliestDate = earliest.Time
	}
	if latest.Status == pgtype.Present {
		ret.LatestDate = latest.Time
	}
	return ret, nil
}
