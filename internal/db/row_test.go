package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/sp500etl/internal/model"
)

func float(t *testing.T, n pgtype.Numeric) float64 {
	t.Helper()
	require.Equal(t, pgtype.Present, n.Status)
	var f float64
	require.NoError(t, n.AssignTo(&f))
	return f
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{
		"date", "symbol", "open", "high", "low", "close", "volume",
		"close_change", "close_pct_change", "daily_range", "daily_range_pct",
	}, Columns)
}

func TestParseRecord(t *testing.T) {
	row, err := ParseRecord([]string{"2024-01-03", "AAA", "10.25", "12", "10", "11.5", "1200", "1.25", "12.1951", "2", "20"})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), row.Date.Time)
	assert.Equal(t, "AAA", row.Symbol.String)
	assert.InDelta(t, 10.25, float(t, row.Open), 1e-9)
	assert.InDelta(t, 1200, float(t, row.Volume), 1e-9)
	assert.InDelta(t, 12.1951, float(t, row.ClosePctChange), 1e-9)
	assert.InDelta(t, 20, float(t, row.DailyRangePct), 1e-9)
	assert.Len(t, row.Values(), len(Columns))
}

func TestParseRecord_Nulls(t *testing.T) {
	row, err := ParseRecord([]string{"2024-01-03", "AAA", "", "NULL", `\N`, "11.5", "null"})
	require.NoError(t, err)

	for _, n := range []pgtype.Numeric{row.Open, row.High, row.Low, row.Volume} {
		assert.Equal(t, pgtype.Null, n.Status)
	}
	assert.InDelta(t, 11.5, float(t, row.Close), 1e-9)

	// trailing fields absent from the record
	for _, n := range []pgtype.Numeric{row.CloseChange, row.ClosePctChange, row.DailyRange, row.DailyRangePct} {
		assert.Equal(t, pgtype.Null, n.Status)
	}
}

func TestParseRecord_ExtraFieldsIgnored(t *testing.T) {
	rec := []string{"2024-01-03", "AAA", "1", "1", "1", "1", "1", "0", "0", "0", "0", "surplus"}
	_, err := ParseRecord(rec)
	assert.NoError(t, err)
}

func TestParseRecord_Invalid(t *testing.T) {
	for name, rec := range map[string][]string{
		"no date":     {"", "AAA", "1"},
		"bad date":    {"03/01/2024", "AAA", "1"},
		"no symbol":   {"2024-01-03", "NULL", "1"},
		"bad numeric": {"2024-01-03", "AAA", "ten"},
		"empty":       {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRecord(rec)
			assert.Error(t, err)
		})
	}
}

func TestReadRows(t *testing.T) {
	artifact := strings.Join([]string{
		strings.Join(model.Columns, ","),
		"2024-01-02,AAA,10,11,9,10,1000,0,0,2,22.2222",
		"2024-01-02,BBB,20,21,19,20,2000,0,0,2,10.5263",
		"not-a-date,AAA,1,1,1,1,1,0,0,0,0",
		`2024-01-03,AA"A,1`,
		"2024-01-03,BBB,ten,21,19,20,2000,0,0,2,10.5263",
		"2024-01-03,AAA,10.25,12,10,11.5,1200,1.5,15,2,20",
	}, "\n") + "\n"

	out := make(chan []interface{}, 16)
	var info model.LoadInfo
	err := readRows(context.Background(), strings.NewReader(artifact), out, &info)
	require.NoError(t, err)

	var rows [][]interface{}
	for row := range out {
		rows = append(rows, row)
	}

	assert.Len(t, rows, 3)
	assert.EqualValues(t, 6, info.RowsParsed)
	assert.EqualValues(t, 3, info.RowsSkipped)
	assert.Equal(t, "BBB", rows[1][1].(*pgtype.Text).String)
}

func TestReadRows_MalformedFirstRecord(t *testing.T) {
	artifact := `"Da"te",Symbol` + "\n" +
		"2024-01-02,AAA,10,11,9,10,1000,0,0,2,22.2222\n"

	out := make(chan []interface{}, 4)
	var info model.LoadInfo
	require.NoError(t, readRows(context.Background(), strings.NewReader(artifact), out, &info))

	var rows int
	for range out {
		rows++
	}
	assert.Equal(t, 1, rows)
	assert.EqualValues(t, 2, info.RowsParsed)
	assert.EqualValues(t, 1, info.RowsSkipped)
}

func TestReadRows_HeaderOnly(t *testing.T) {
	out := make(chan []interface{}, 1)
	var info model.LoadInfo
	require.NoError(t, readRows(context.Background(), strings.NewReader(strings.Join(model.Columns, ",")+"\n"), out, &info))

	_, open := <-out
	assert.False(t, open)
	assert.Zero(t, info.RowsParsed)
}

func TestReadRows_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan []interface{})
	var info model.LoadInfo
	err := readRows(ctx, strings.NewReader("h\n2024-01-02,AAA,1\n"), out, &info)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewWarehouse(t *testing.T) {
	assert.Equal(t, `"stock_data"`, NewWarehouse(nil, "").Table.Sanitize())
	assert.Equal(t, `"analytics"."stock_data"`, NewWarehouse(nil, "analytics.stock_data").Table.Sanitize())
}
