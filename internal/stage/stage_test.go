package stage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/sp500etl/internal/model"
)

func nd(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func testDataset() model.Dataset {
	return model.Dataset{
		Columns: model.Columns,
		Bars: []model.NormalizedBar{
			{
				Date: "2024-01-02", Symbol: "AAA",
				Open: nd("10"), High: nd("11.5"), Low: nd("9"), Close: nd("10.25"), Volume: nd("1000"),
				CloseChange: nd("0"), ClosePctChange: nd("0"), DailyRange: nd("2.5"), DailyRangePct: nd("27.7778"),
			},
			{
				Date: "2024-01-02", Symbol: `B"B`,
				Close: nd("-1.5"), CloseChange: nd("0"), ClosePctChange: nd("0"), DailyRangePct: nd("0"),
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testDataset()))
	assert.Equal(t,
		`"Date","Symbol","Open","High","Low","Close","Volume","Close_Change","Close_Pct_Change","Daily_Range","Daily_Range_Pct"`+"\n"+
			`"2024-01-02","AAA","10.0000","11.5000","9.0000","10.2500","1000.0000","0.0000","0.0000","2.5000","27.7778"`+"\n"+
			`"2024-01-02","B""B","","","","-1.5000","","0.0000","0.0000","","0.0000"`+"\n",
		buf.String())
}

func TestWriteCSV_HeaderOnlyColumnsAlwaysWritten(t *testing.T) {
	ds := model.Dataset{Columns: []string{model.ColDate, model.ColSymbol, model.ColClose}, Bars: []model.NormalizedBar{
		{Date: "2024-01-02", Symbol: "AAA", Close: nd("1")},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))
	assert.Contains(t, buf.String(), `"2024-01-02","AAA","","","","1.0000","","","","",""`)
}

func TestArtifactName(t *testing.T) {
	assert.Equal(t, "sp500_data_20240305_142501.csv", ArtifactName(time.Date(2024, 3, 5, 14, 25, 1, 0, time.UTC)))
}

func TestWriteArtifact(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 5, 14, 25, 1, 0, time.UTC)

	a, err := WriteArtifact(context.Background(), dir, now, testDataset(), false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sp500_data_20240305_142501.csv"), a.Path)
	assert.Equal(t, 2, a.RowCount)
	assert.Equal(t, 2, a.SymbolCount)
	assert.Empty(t, a.SnapshotPath)
	assert.Equal(t, 1, a.Quality.Missing[model.ColOpen])

	b, err := WriteArtifact(context.Background(), dir, now, testDataset(), false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sp500_data_20240305_142501_1.csv"), b.Path)

	first, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	second, err := os.ReadFile(b.Path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestWriteArtifact_Snapshot(t *testing.T) {
	dir := t.TempDir()
	a, err := WriteArtifact(context.Background(), dir, time.Now(), testDataset(), true)
	require.NoError(t, err)
	require.NotEmpty(t, a.SnapshotPath)
	assert.Equal(t, ".parquet", filepath.Ext(a.SnapshotPath))

	records, err := parquet.ReadFile[BarRecord](a.SnapshotPath)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "AAA", records[0].Symbol)
	require.NotNil(t, records[0].DailyRangePct)
	assert.InDelta(t, 27.7778, *records[0].DailyRangePct, 1e-9)
	assert.Nil(t, records[1].Open)
	require.NotNil(t, records[1].Close)
	assert.Equal(t, -1.5, *records[1].Close)
}

func TestWriteArtifact_SnapshotFailureRemovesCSV(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 5, 14, 25, 1, 0, time.UTC)
	// a directory in the snapshot's place makes the parquet write fail
	blocker := filepath.Join(dir, "sp500_data_20240305_142501.parquet")
	require.NoError(t, os.Mkdir(blocker, 0o755))

	_, err := WriteArtifact(context.Background(), dir, now, testDataset(), true)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(blocker), entries[0].Name())
}
