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
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajjensen13/gke"

	"github.com/ajjensen13/sp500etl/internal/model"
	"github.com/ajjensen13/sp500etl/internal/util"
)

const (
	dbSecretName  = "sp500etl-db-secret.json"
	appConfigName = "sp500etl-config-cm.json"
	apiSecretName = "sp500etl-api-secret.json"
	envPrefix     = "SP500ETL"
)

type appConfig struct {
	SourceURL       string  `json:"source_url" envconfig:"SOURCE_URL"`
	Bucket          string  `json:"bucket" envconfig:"BUCKET"`
	Folder          string  `json:"folder" envconfig:"FOLDER"`
	RetentionDays   int     `json:"retention_days" envconfig:"RETENTION_DAYS"`
	MaxSymbols      int     `json:"max_symbols" envconfig:"MAX_SYMBOLS"`
	ArtifactDir     string  `json:"artifact_dir" envconfig:"ARTIFACT_DIR"`
	ParquetSnapshot bool    `json:"parquet_snapshot" envconfig:"PARQUET_SNAPSHOT"`
	Retries         *uint64 `json:"retries" envconfig:"RETRIES"`
	RetryDelay      string  `json:"retry_delay" envconfig:"RETRY_DELAY"`
	RequestInterval string  `json:"request_interval" envconfig:"REQUEST_INTERVAL"`
	RequestTimeout  string  `json:"request_timeout" envconfig:"REQUEST_TIMEOUT"`

	// PriceSource is "yahoo" (default) or "finnhub".
	PriceSource string `json:"price_source" envconfig:"PRICE_SOURCE"`
	// StoreDir keeps objects in a local directory instead of the storage bucket.
	StoreDir string `json:"store_dir" envconfig:"STORE_DIR"`

	DataSourceName     string `json:"data_source_name" envconfig:"DATA_SOURCE_NAME"`
	Table              string `json:"table" envconfig:"TABLE"`
	MigrationSourceURL string `json:"migration_source_url" envconfig:"MIGRATION_SOURCE_URL"`
	PushgatewayURL     string `json:"pushgateway_url" envconfig:"PUSHGATEWAY_URL"`

	Schedule string `json:"schedule" envconfig:"SCHEDULE"`
	Timezone string `json:"timezone" envconfig:"TIMEZONE"`
}

type appSecrets struct {
	ApiKey string `json:"api_key"`
}

// etlCmd represents the run command
var etlCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"etl"},
	Short:   "Run the pipeline once",
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, err := runOnce(ctx, lg)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("run %s failed: %w", res.RunID, err)))
		}
	},
}

func runOnce(ctx context.Context, lg gke.Logger) (model.Results, error) {
	ctx = util.WithLogger(ctx, lg)

	p, cleanup, err := newPipeline(ctx, lg)
	if err != nil {
		return model.Results{}, fmt.Errorf("failed to setup pipeline: %w", err)
	}
	defer cleanup()

	res, err := p.Run(ctx)
	if err != nil {
		return res, err
	}

	summarize(lg, res)
	return res, nil
}

func summarize(lg gke.Logger, res model.Results) {
	lg.Defaultf("run %s finished in %v", res.RunID, res.EndedAt.Sub(res.StartedAt))
	if res.Symbols != nil {
		lg.Defaultf("symbols: %d processed of %d found", len(res.Symbols.Symbols), res.Symbols.TotalFound)
	}
	if res.Artifact != nil {
		lg.Defaultf("dataset: %d rows for %d symbols (%s to %s)", res.Artifact.RowCount, res.Artifact.SymbolCount,
			res.Artifact.Quality.EarliestDate, res.Artifact.Quality.LatestDate)
	}
	if res.Upload != nil {
		lg.Defaultf("uploaded to %s", res.Upload.Location)
	}
	if res.Load != nil {
		v := res.Load.Verification
		lg.Defaultf("loaded %d rows (%d skipped); table holds %d rows for %d symbols (%s to %s)",
			res.Load.RowsLoaded, res.Load.RowsSkipped, v.TotalRows, v.UniqueSymbols,
			v.EarliestDate.Format(model.DateLayout), v.LatestDate.Format(model.DateLayout))
	}
}

func init() {
	rootCmd.AddCommand(etlCmd)
}
