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
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ajjensen13/sp500etl/internal/db"
)

const (
	DefaultSourceURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"
	DefaultBucket    = "sp500-stock-data"
	DefaultFolder    = "stock"
	DefaultSchedule  = "0 0 * * *"
)

// Config holds everything a run needs besides its collaborators.
type Config struct {
	SourceURL     string `validate:"required,url"`
	Bucket        string `validate:"required"`
	Folder        string
	RetentionDays int    `validate:"gte=1"`
	MaxSymbols    int    `validate:"gte=0"` // 0 processes every symbol
	ArtifactDir   string `validate:"required"`
	Table         string `validate:"required"`

	ParquetSnapshot bool

	// Retries is the number of times a failed stage is run again, RetryDelay apart.
	Retries    uint64
	RetryDelay time.Duration `validate:"gte=0"`

	// RequestInterval spaces price requests. 0 sends them back to back.
	RequestInterval time.Duration `validate:"gte=0"`
	RequestTimeout  time.Duration `validate:"gt=0"`
}

func DefaultConfig() Config {
	return Config{
		SourceURL:      DefaultSourceURL,
		Bucket:         DefaultBucket,
		Folder:         DefaultFolder,
		RetentionDays:  1,
		ArtifactDir:    "/tmp",
		Table:          db.DefaultTable,
		Retries:        2,
		RetryDelay:     5 * time.Minute,
		RequestTimeout: 30 * time.Second,
	}
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid pipeline config: %w", err)
	}
	return nil
}
