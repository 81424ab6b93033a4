package transform

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/sp500etl/internal/model"
)

func d(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func assertDecimal(t *testing.T, want string, got decimal.NullDecimal, msgAndArgs ...interface{}) {
	t.Helper()
	if assert.True(t, got.Valid, msgAndArgs...) {
		assert.True(t, decimal.RequireFromString(want).Equal(got.Decimal), "want %s, got %s", want, got.Decimal)
	}
}

func multiLevel(symbol string, rows ...[]string) model.RawFrame {
	f := model.RawFrame{Columns: []model.ColumnKey{
		{"Date", ""},
		{"Adj Close", symbol},
		{"Close", symbol},
		{"High", symbol},
		{"Low", symbol},
		{"Open", symbol},
		{"Volume", symbol},
	}}
	f.Rows = rows
	return f
}

func TestReconcile(t *testing.T) {
	f := multiLevel("AAA", []string{"2024-01-02", "1", "2", "3", "4", "5", "6"})
	got, err := Reconcile(f)
	require.NoError(t, err)
	assert.False(t, got.MultiLevel())
	assert.Equal(t, []string{"Date", "Adj_Close", "Close", "High", "Low", "Open", "Volume"}, got.Names())
	assert.Equal(t, f.Rows, got.Rows)
}

func TestReconcile_FirstDuplicateWins(t *testing.T) {
	f := model.RawFrame{
		Columns: []model.ColumnKey{{"Date"}, {"Close", "AAA"}, {"Close", "BBB"}, {"AdjClose"}},
		Rows:    [][]string{{"2024-01-02", "1", "2", "3"}},
	}
	got, err := Reconcile(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Close", "Adj_Close"}, got.Names())
	assert.Equal(t, [][]string{{"2024-01-02", "1", "3"}}, got.Rows)
}

func TestReconcile_MissingDate(t *testing.T) {
	_, err := Reconcile(model.Flat("Open", "Close"))
	assert.True(t, errors.Is(err, ErrMissingDateColumn))
}

func TestNormalize(t *testing.T) {
	f := multiLevel("AAA",
		[]string{"2024-01-03", "", "110.456", "112", "108", "109", "2000"},
		[]string{"2024-01-02", "", "100", "105.123", "95.5", "99", "1000.5"},
		[]string{"2024-01-04", "", "99", "NaN", "98", "100", ""},
	)
	bars, cols, err := Normalize(context.Background(), "AAA", f)
	require.NoError(t, err)
	assert.Equal(t, model.Columns, cols)
	require.Len(t, bars, 3)

	assert.Equal(t, []string{"2024-01-02", "2024-01-03", "2024-01-04"}, []string{bars[0].Date, bars[1].Date, bars[2].Date})
	for _, b := range bars {
		assert.Equal(t, "AAA", b.Symbol)
	}

	assertDecimal(t, "105.12", bars[0].High)
	assertDecimal(t, "1000.5", bars[0].Volume)
	assertDecimal(t, "110.46", bars[1].Close)
	assert.False(t, bars[2].High.Valid)
	assert.False(t, bars[2].Volume.Valid)

	assertDecimal(t, "0", bars[0].CloseChange)
	assertDecimal(t, "0", bars[0].ClosePctChange)
	assertDecimal(t, "10.46", bars[1].CloseChange)
	assertDecimal(t, "10.46", bars[1].ClosePctChange)
	assertDecimal(t, "-11.46", bars[2].CloseChange)
	assertDecimal(t, "-10.3748", bars[2].ClosePctChange)

	assertDecimal(t, "9.62", bars[0].DailyRange)
	assertDecimal(t, "10.0733", bars[0].DailyRangePct)
	assert.False(t, bars[2].DailyRange.Valid)
	assertDecimal(t, "0", bars[2].DailyRangePct)
}

func TestNormalize_CloseChangeAdjacency(t *testing.T) {
	f := model.RawFrame{Columns: []model.ColumnKey{{"Date"}, {"Close"}}, Rows: [][]string{
		{"2024-01-05", "10.01"},
		{"2024-01-02", "10"},
		{"2024-01-03", "null"},
		{"2024-01-04", "9.5"},
	}}
	bars, cols, err := Normalize(context.Background(), "AAA", f)
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Symbol", "Close", "Close_Change", "Close_Pct_Change"}, cols)
	require.Len(t, bars, 3)

	assertDecimal(t, "0", bars[0].CloseChange)
	for i := 1; i < len(bars); i++ {
		want := bars[i].Close.Decimal.Sub(bars[i-1].Close.Decimal)
		assert.True(t, want.Equal(bars[i].CloseChange.Decimal), "row %d", i)
	}
	assert.False(t, bars[0].DailyRange.Valid)
}

func TestNormalize_DailyRangePctLowZero(t *testing.T) {
	f := model.RawFrame{Columns: []model.ColumnKey{{"Date"}, {"High"}, {"Low"}, {"Close"}}, Rows: [][]string{
		{"2024-01-02", "5", "0", "1"},
		{"2024-01-03", "5", "", "1"},
		{"2024-01-04", "5", "abc", "1"},
	}}
	bars, _, err := Normalize(context.Background(), "AAA", f)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assertDecimal(t, "5", bars[0].DailyRange)
	for _, b := range bars {
		assertDecimal(t, "0", b.DailyRangePct, b.Date)
	}
	assert.False(t, bars[1].Low.Valid)
	assert.False(t, bars[2].Low.Valid)
}

func TestNormalize_DropsRowsWithoutDateOrClose(t *testing.T) {
	f := model.RawFrame{Columns: []model.ColumnKey{{"Date"}, {"Close"}}, Rows: [][]string{
		{"", "1"},
		{"NaT", "2"},
		{"not a date", "3"},
		{"2024-01-02", ""},
		{"2024-01-03 00:00:00-05:00", "4"},
	}}
	bars, _, err := Normalize(context.Background(), "AAA", f)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "2024-01-03", bars[0].Date)
}

func TestNormalize_NoClose(t *testing.T) {
	bars, cols, err := Normalize(context.Background(), "AAA", model.RawFrame{
		Columns: []model.ColumnKey{{"Date"}, {"Open"}},
		Rows:    [][]string{{"2024-01-02", "1"}},
	})
	require.NoError(t, err)
	assert.Empty(t, bars)
	assert.Equal(t, []string{"Date", "Symbol", "Open"}, cols)
}

func TestParseNumber(t *testing.T) {
	for _, s := range []string{"", " ", "NaN", "nan", "None", "null", "N/A", "<NA>", "inf", "-inf", "x1"} {
		assert.False(t, ParseNumber(s).Valid, s)
	}
	assertDecimal(t, "1.5", ParseNumber(" 1.5 "))
	assertDecimal(t, "1500", ParseNumber("1.5e3"))
}

func TestParseDate(t *testing.T) {
	tests := map[string]string{
		"2024-01-02":                "2024-01-02",
		"2024-01-02 00:00:00":       "2024-01-02",
		"2024-01-02T09:30:00-05:00": "2024-01-02",
		"2024-01-02T23:30:00-05:00": "2024-01-02",
		"01/02/2024":                "2024-01-02",
	}
	for in, want := range tests {
		got, ok := ParseDate(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseDate("NaT")
	assert.False(t, ok)
}
