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


package metrics

import (
	"cloud.google.com/go/logging"
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/ajjensen13/sp500etl/internal/model"
	"github.com/ajjensen13/sp500etl/internal/util"
)

const (
	namespace = "sp500etl"
	job       = "sp500etl"
)

// Reporter collects the counters of one run and pushes them to a Pushgateway.
type Reporter struct {
	Registry *prometheus.Registry
	URL      string

	symbols       prometheus.Gauge
	symbolErrors  prometheus.Gauge
	rows          prometheus.Gauge
	missing       *prometheus.GaugeVec
	rowsLoaded    prometheus.Gauge
	rowsSkipped   prometheus.Gauge
	stageFailures *prometheus.CounterVec
	lastSuccess   prometheus.Gauge
}

// NewReporter returns a Reporter pushing to url. An empty url disables pushing.
func NewReporter(url string) *Reporter {
	r := &Reporter{
		Registry: prometheus.NewRegistry(),
		URL:      url,
		symbols: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "symbols", Help: "Symbols processed by the last run.",
		}),
		symbolErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "symbol_errors", Help: "Symbols skipped because of an error in the last run.",
		}),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "dataset_rows", Help: "Rows in the dataset of the last run.",
		}),
		missing: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "dataset_missing_values", Help: "Missing values per column in the dataset of the last run.",
		}, []string{"column"}),
		rowsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "warehouse_rows_loaded", Help: "Rows copied into the warehouse by the last run.",
		}),
		rowsSkipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "warehouse_rows_skipped", Help: "Malformed rows skipped by the last load.",
		}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "stage_failures_total", Help: "Failed stage attempts.",
		}, []string{"stage"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds", Help: "End time of the last successful run.",
		}),
	}
	r.Registry.MustRegister(r.symbols, r.symbolErrors, r.rows, r.missing, r.rowsLoaded, r.rowsSkipped, r.stageFailures, r.lastSuccess)
	return r
}

func (r *Reporter) StageFailed(stage string) {
	r.stageFailures.WithLabelValues(stage).Inc()
}

func (r *Reporter) SymbolErrors(n int) {
	r.symbolErrors.Set(float64(n))
}

func (r *Reporter) Dataset(symbols int, q model.QualityReport) {
	r.symbols.Set(float64(symbols))
	r.rows.Set(float64(q.Rows))
	r.missing.Reset()
	for col, n := range q.Missing {
		r.missing.WithLabelValues(col).Set(float64(n))
	}
}

func (r *Reporter) Loaded(info model.LoadInfo) {
	r.rowsLoaded.Set(float64(info.RowsLoaded))
	r.rowsSkipped.Set(float64(info.RowsSkipped))
}

func (r *Reporter) Succeeded(res model.Results) {
	r.lastSuccess.Set(float64(res.EndedAt.Unix()))
}

// Push sends the collected metrics. Failures are logged and otherwise ignored.
func (r *Reporter) Push(ctx context.Context) {
	if r.URL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
	defer cancel()

	err := push.New(r.URL, job).Gatherer(r.Registry).PushContext(ctx)
	if err != nil {
		util.Logf(ctx, logging.Warning, "failed to push metrics to %s: %v", r.URL, err)
		return
	}
	util.Logf(ctx, logging.Debug, "pushed metrics to %s", r.URL)
}
