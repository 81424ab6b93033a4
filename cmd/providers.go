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


package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ajjensen13/config"
	"github.com/ajjensen13/gke"
	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/kelseyhightower/envconfig"

	"github.com/ajjensen13/sp500etl/internal/api"
	"github.com/ajjensen13/sp500etl/internal/db"
	"github.com/ajjensen13/sp500etl/internal/extract"
	"github.com/ajjensen13/sp500etl/internal/load"
	"github.com/ajjensen13/sp500etl/internal/metrics"
	"github.com/ajjensen13/sp500etl/internal/model"
	"github.com/ajjensen13/sp500etl/internal/pipeline"
)

func provideTimezone(appConfig *appConfig) (*time.Location, error) {
	if appConfig.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(appConfig.Timezone)
}

func provideAppSecrets() (*appSecrets, error) {
	var result appSecrets
	err := config.InterfaceJson(apiSecretName, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// provideAppConfig reads the config map and applies SP500ETL_* environment overrides.
func provideAppConfig() (*appConfig, error) {
	var result appConfig
	err := config.InterfaceJson(appConfigName, &result)
	if err != nil {
		return nil, err
	}
	err = envconfig.Process(envPrefix, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return &result, nil
}

func parseDuration(name, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return d, nil
}

func providePipelineConfig(cfg *appConfig) (ret pipeline.Config, err error) {
	ret = pipeline.DefaultConfig()
	if cfg.SourceURL != "" {
		ret.SourceURL = cfg.SourceURL
	}
	if cfg.Bucket != "" {
		ret.Bucket = cfg.Bucket
	}
	if cfg.Folder != "" {
		ret.Folder = cfg.Folder
	}
	if cfg.RetentionDays != 0 {
		ret.RetentionDays = cfg.RetentionDays
	}
	if cfg.ArtifactDir != "" {
		ret.ArtifactDir = cfg.ArtifactDir
	}
	if cfg.Table != "" {
		ret.Table = cfg.Table
	}
	if cfg.Retries != nil {
		ret.Retries = *cfg.Retries
	}
	ret.MaxSymbols = cfg.MaxSymbols
	ret.ParquetSnapshot = cfg.ParquetSnapshot

	if ret.RetryDelay, err = parseDuration("retry_delay", cfg.RetryDelay, ret.RetryDelay); err != nil {
		return
	}
	if ret.RequestInterval, err = parseDuration("request_interval", cfg.RequestInterval, ret.RequestInterval); err != nil {
		return
	}
	if ret.RequestTimeout, err = parseDuration("request_timeout", cfg.RequestTimeout, ret.RequestTimeout); err != nil {
		return
	}

	return ret, ret.Validate()
}

func provideHTTPClient() *http.Client {
	return &http.Client{}
}

func provideBackoffNotifier(lg gke.Logger) backoff.Notify {
	return func(err error, duration time.Duration) {
		if errors.Is(err, api.ErrTooManyRequests) {
			lg.Info(gke.NewFmtMsgData("request exceeded rate limit, waiting %v before retrying: %v", duration, err))
			return
		}
		lg.Warning(gke.NewFmtMsgData("request failed, waiting %v before retrying: %v", duration, err))
	}
}

func providePriceSource(cfg *appConfig, client *http.Client, bon backoff.Notify) (extract.PriceSource, error) {
	switch cfg.PriceSource {
	case "", "yahoo":
		return api.NewYahooSource(client, bon), nil
	case "finnhub":
		secrets, err := provideAppSecrets()
		if err != nil {
			return nil, fmt.Errorf("failed to read api secrets: %w", err)
		}
		return api.NewFinnhubSource(secrets.ApiKey, bon), nil
	default:
		return nil, fmt.Errorf("unknown price source %q", cfg.PriceSource)
	}
}

func provideObjectStore(ctx context.Context, cfg *appConfig, pc pipeline.Config) (load.ObjectStore, func(), error) {
	if cfg.StoreDir != "" {
		return &load.DirStore{Root: cfg.StoreDir, Name: pc.Bucket}, func() {}, nil
	}
	b, cleanup, err := load.NewGCSBucket(ctx, pc.Bucket)
	if err != nil {
		return nil, func() {}, err
	}
	return b, cleanup, nil
}

func provideDbSecrets() (*url.Userinfo, error) {
	ui, err := config.Userinfo(dbSecretName)
	if err != nil {
		return nil, err
	}
	return ui, nil
}

func provideDataSourceName(user *url.Userinfo, cfg *appConfig) (dsn *url.URL, err error) {
	dsn, err = url.Parse(cfg.DataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse data source name: %w", err)
	}
	dsn.User = user

	return dsn, nil
}

func provideDbConnPool(ctx context.Context, dsn *url.URL) (ret *pgxpool.Pool, cleanup func(), err error) {
	pool, err := pgxpool.Connect(ctx, dsn.String())
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open database connection pool: %w", err)
	}

	return pool, pool.Close, nil
}

// provideCopier returns a nil Copier when no warehouse is configured.
func provideCopier(ctx context.Context, cfg *appConfig, pc pipeline.Config) (load.Copier, func(), error) {
	if cfg.DataSourceName == "" {
		return nil, func() {}, nil
	}

	user, err := provideDbSecrets()
	if err != nil {
		return nil, func() {}, err
	}
	dsn, err := provideDataSourceName(user, cfg)
	if err != nil {
		return nil, func() {}, err
	}
	pool, cleanup, err := provideDbConnPool(ctx, dsn)
	if err != nil {
		return nil, func() {}, err
	}
	return db.NewWarehouse(pool, pc.Table), cleanup, nil
}

func provideMetrics(cfg *appConfig) *metrics.Reporter {
	return metrics.NewReporter(cfg.PushgatewayURL)
}

func provideSymbols(ctx context.Context, client *http.Client, pc pipeline.Config) (model.SymbolList, error) {
	return extract.ListSymbols(ctx, client, pc.SourceURL, pc.MaxSymbols)
}

type cronSchedule string

func provideSchedule(cfg *appConfig) cronSchedule {
	if cfg.Schedule == "" {
		return pipeline.DefaultSchedule
	}
	return cronSchedule(cfg.Schedule)
}

func provideMigrationSourceURL(cfg *appConfig) string {
	if cfg.MigrationSourceURL == "" {
		return "file://migrations"
	}
	return cfg.MigrationSourceURL
}

func provideLogger() (lg gke.Logger, cleanup func()) {
	lg, cleanup, err := gke.NewLogger(context.Background())
	if err != nil {
		panic(err)
	}

	gke.LogEnv(lg)
	gke.LogMetadata(lg)

	return lg, cleanup
}

func provideMigrator(lg gke.Logger, databaseURL *url.URL, sourceURL string) (m *migrate.Migrate, err error) {
	m, err = migrate.New(sourceURL, databaseURL.String())
	if err != nil {
		return nil, err
	}
	m.Log = migrationLogger{lg}
	return m, err
}

type migrationLogger struct {
	gke.Logger
}

func (m migrationLogger) Printf(format string, v ...interface{}) {
	m.Defaultf(format, v...)
}

func (m migrationLogger) Verbose() bool {
	return false
}
