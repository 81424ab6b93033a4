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


package pipeline

import (
	"cloud.google.com/go/logging"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/ajjensen13/sp500etl/internal/api"
	"github.com/ajjensen13/sp500etl/internal/extract"
	"github.com/ajjensen13/sp500etl/internal/load"
	"github.com/ajjensen13/sp500etl/internal/metrics"
	"github.com/ajjensen13/sp500etl/internal/model"
	"github.com/ajjensen13/sp500etl/internal/stage"
	"github.com/ajjensen13/sp500etl/internal/transform"
	"github.com/ajjensen13/sp500etl/internal/util"
)

const (
	StageSymbols = "extract_sp500_symbols"
	StagePrices  = "fetch_stock_data"
	StageUpload  = "upload_to_storage"
	StageLoad    = "load_to_warehouse"
)

// Pipeline runs the stages in order, handing each the result of the previous one.
type Pipeline struct {
	Config  Config
	Client  *http.Client
	Source  extract.PriceSource
	Store   load.ObjectStore
	Copier  load.Copier // nil skips the warehouse stage
	Metrics *metrics.Reporter
	Now     func() time.Time
}

func New(cfg Config, client *http.Client, src extract.PriceSource, store load.ObjectStore, copier load.Copier, m *metrics.Reporter) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.NewReporter("")
	}
	return &Pipeline{
		Config:  cfg,
		Client:  client,
		Source:  src,
		Store:   store,
		Copier:  copier,
		Metrics: m,
		Now:     time.Now,
	}, nil
}

// Run executes one full run. The returned Results hold every stage that completed,
// also when an error is returned.
func (p *Pipeline) Run(ctx context.Context) (res model.Results, err error) {
	res.RunID = uuid.New().String()
	res.StartedAt = p.Now()
	ctx = util.WithLoggerValue(ctx, "run_id", res.RunID)
	util.Logf(ctx, logging.Info, "starting run %s", res.RunID)

	defer func() {
		res.EndedAt = p.Now()
		if err == nil {
			p.Metrics.Succeeded(res)
		}
		p.Metrics.Push(ctx)
	}()

	var symbols model.SymbolList
	err = p.retry(ctx, StageSymbols, func(ctx context.Context) (err error) {
		symbols, err = p.ListSymbols(ctx)
		return
	})
	if err != nil {
		return res, err
	}
	res.Symbols = &symbols

	var artifact model.Artifact
	err = p.retry(ctx, StagePrices, func(ctx context.Context) (err error) {
		artifact, err = p.FetchPrices(ctx, symbols)
		return
	})
	if err != nil {
		return res, err
	}
	res.Artifact = &artifact

	var upload model.Upload
	err = p.retry(ctx, StageUpload, func(ctx context.Context) (err error) {
		upload, err = p.Upload(ctx, artifact)
		return
	})
	if err != nil {
		return res, err
	}
	res.Upload = &upload

	if p.Copier == nil {
		util.Logf(ctx, logging.Info, "no warehouse configured, leaving %s in place", upload.Location)
		return res, nil
	}

	var info model.LoadInfo
	err = p.retry(ctx, StageLoad, func(ctx context.Context) (err error) {
		info, err = p.Load(ctx, upload)
		return
	})
	if err != nil {
		return res, err
	}
	res.Load = &info

	return res, nil
}

// retry runs op and, while it fails, up to Config.Retries more times.
func (p *Pipeline) retry(ctx context.Context, name string, op func(ctx context.Context) error) error {
	ctx = util.WithLoggerValue(ctx, "stage", name)
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Config.RetryDelay), p.Config.Retries), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		util.Logf(ctx, logging.Debug, "running %s (attempt %d)", name, attempt)
		err := op(ctx)
		if err != nil {
			p.Metrics.StageFailed(name)
		}
		return err
	}, bo, func(err error, d time.Duration) {
		util.Logf(ctx, logging.Warning, "%s failed, retrying in %v: %v", name, d, err)
	})
	if err != nil {
		util.Logf(ctx, logging.Error, "%s failed after %d attempts: %v", name, attempt, err)
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (p *Pipeline) ListSymbols(ctx context.Context) (model.SymbolList, error) {
	return extract.ListSymbols(ctx, p.Client, p.Config.SourceURL, p.Config.MaxSymbols)
}

// FetchPrices fetches and normalizes the trailing window of every symbol and writes the artifact.
func (p *Pipeline) FetchPrices(ctx context.Context, symbols model.SymbolList) (model.Artifact, error) {
	now := p.Now()
	from, to := extract.Window(now, p.Config.RetentionDays)
	util.Logf(ctx, logging.Info, "fetching %d symbols from %s to %s", len(symbols.Symbols), from.Format(model.DateLayout), to.Format(model.DateLayout))

	src := p.Source
	if p.Config.RequestInterval > 0 {
		t := newThrottle(p.Source, p.Config.RequestInterval)
		defer t.Stop()
		src = t
	}
	src = timeout{src: src, d: p.Config.RequestTimeout}

	results := transform.Symbols(ctx, src, symbols.Symbols, from, to)
	if err := ctx.Err(); err != nil {
		return model.Artifact{}, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	p.Metrics.SymbolErrors(failed)
	if failed > 0 {
		util.Logf(ctx, logging.Warning, "%d of %d symbols failed", failed, len(results))
	}

	ds, err := transform.Aggregate(ctx, results)
	if err != nil {
		return model.Artifact{}, err
	}

	a, err := stage.WriteArtifact(ctx, p.Config.ArtifactDir, now, ds, p.Config.ParquetSnapshot)
	if err != nil {
		return model.Artifact{}, err
	}
	p.Metrics.Dataset(a.SymbolCount, a.Quality)
	return a, nil
}

func (p *Pipeline) Upload(ctx context.Context, a model.Artifact) (model.Upload, error) {
	return load.Upload(ctx, p.Store, p.Config.Folder, a)
}

func (p *Pipeline) Load(ctx context.Context, u model.Upload) (model.LoadInfo, error) {
	info, err := load.Load(ctx, p.Copier, p.Store, u)
	if err != nil {
		return model.LoadInfo{}, err
	}
	p.Metrics.Loaded(info)
	return info, nil
}

type throttle struct {
	src    extract.PriceSource
	ticker *time.Ticker
	first  bool
}

func newThrottle(src extract.PriceSource, d time.Duration) *throttle {
	return &throttle{src: src, ticker: time.NewTicker(d), first: true}
}

func (t *throttle) Candles(ctx context.Context, req api.CandlesRequest) (model.RawFrame, error) {
	if !t.first {
		select {
		case <-ctx.Done():
			return model.RawFrame{}, ctx.Err()
		case <-t.ticker.C:
		}
	}
	t.first = false
	return t.src.Candles(ctx, req)
}

func (t *throttle) Stop() {
	t.ticker.Stop()
}

type timeout struct {
	src extract.PriceSource
	d   time.Duration
}

func (t timeout) Candles(ctx context.Context, req api.CandlesRequest) (model.RawFrame, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.src.Candles(ctx, req)
}
