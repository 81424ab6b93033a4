//go:build wireinject
// +build wireinject

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
	"net/url"
	"time"

	"github.com/ajjensen13/gke"
	"github.com/golang-migrate/migrate/v4"
	"github.com/google/wire"

	"github.com/ajjensen13/sp500etl/internal/model"
	"github.com/ajjensen13/sp500etl/internal/pipeline"
)

func timezone() (tz *time.Location, err error) {
	panic(wire.Build(provideTimezone, provideAppConfig))
}

func schedule() (cs cronSchedule, err error) {
	panic(wire.Build(provideSchedule, provideAppConfig))
}

func newPipeline(ctx context.Context, lg gke.Logger) (p *pipeline.Pipeline, cleanup func(), err error) {
	panic(wire.Build(pipeline.New, providePipelineConfig, provideAppConfig, provideHTTPClient, provideBackoffNotifier, providePriceSource, provideObjectStore, provideCopier, provideMetrics))
}

func listSymbols(ctx context.Context) (sl model.SymbolList, err error) {
	panic(wire.Build(provideSymbols, provideHTTPClient, providePipelineConfig, provideAppConfig))
}

func dataSourceName() (dsn *url.URL, err error) {
	panic(wire.Build(provideDataSourceName, provideDbSecrets, provideAppConfig))
}

func migrationSourceURL() (uri string, err error) {
	panic(wire.Build(provideMigrationSourceURL, provideAppConfig))
}

func logger() (lg gke.Logger, cleanup func()) {
	panic(wire.Build(provideLogger))
}

func migrator(lg gke.Logger) (m *migrate.Migrate, err error) {
	panic(wire.Build(provideMigrator, migrationSourceURL, dataSourceName))
}
