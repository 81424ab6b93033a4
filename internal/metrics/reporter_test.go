package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ajjensen13/sp500etl/internal/model"
)

func TestReporter(t *testing.T) {
	r := NewReporter("")

	r.Dataset(2, model.QualityReport{Rows: 4, Missing: map[string]int{model.ColOpen: 1}})
	r.SymbolErrors(1)
	r.Loaded(model.LoadInfo{RowsLoaded: 4, RowsSkipped: 2})
	r.StageFailed("fetch_stock_data")
	r.StageFailed("fetch_stock_data")
	r.Succeeded(model.Results{EndedAt: time.Unix(1700000000, 0)})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.symbols))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.symbolErrors))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.rows))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.missing.WithLabelValues(model.ColOpen)))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.rowsLoaded))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.rowsSkipped))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.stageFailures.WithLabelValues("fetch_stock_data")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.lastSuccess))
}

func TestReporter_DatasetResetsMissing(t *testing.T) {
	r := NewReporter("")
	r.Dataset(1, model.QualityReport{Missing: map[string]int{model.ColOpen: 3}})
	r.Dataset(1, model.QualityReport{Missing: map[string]int{model.ColHigh: 1}})

	assert.Equal(t, 1, testutil.CollectAndCount(r.missing))
}

func TestReporter_Push(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path = req.URL.Path
		b, _ := io.ReadAll(req.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewReporter(srv.URL)
	r.StageFailed("load_to_warehouse")
	r.Push(context.Background())

	assert.Equal(t, "/metrics/job/"+job, path)
	assert.NotEmpty(t, body)
}

func TestReporter_PushDisabled(t *testing.T) {
	// no URL means no request, and no panic
	NewReporter("").Push(context.Background())
}
