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


package extract

import (
	"bytes"
	"cloud.google.com/go/logging"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ajjensen13/sp500etl/internal/api"
	"github.com/ajjensen13/sp500etl/internal/model"
	"github.com/ajjensen13/sp500etl/internal/util"
)

var (
	ErrSourceUnavailable   = errors.New("symbol source unavailable")
	ErrSourceFormatInvalid = errors.New("symbol source format invalid")
	ErrNoValidSymbols      = errors.New("no valid symbols found")
)

// PriceSource returns the bars of one symbol.
type PriceSource interface {
	Candles(ctx context.Context, req api.CandlesRequest) (model.RawFrame, error)
}

// ListSymbols downloads the page at sourceURL and returns the valid symbols of its first table.
// A positive maxSymbols caps the number of symbols returned.
func ListSymbols(ctx context.Context, client *http.Client, sourceURL string, maxSymbols int) (model.SymbolList, error) {
	ctx = util.WithLoggerValue(ctx, "action", "extract")
	util.Logf(ctx, logging.Info, "extracting symbols from %s", sourceURL)

	page, err := api.RequestPage(ctx, client, sourceURL)
	if err != nil {
		return model.SymbolList{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	raw, err := ParseSymbolTable(bytes.NewReader(page))
	if err != nil {
		return model.SymbolList{}, err
	}

	valid, rejected := CleanSymbols(raw)
	for _, s := range rejected {
		util.Logf(ctx, logging.Warning, "skipping invalid symbol: %q", s)
	}
	util.Logf(ctx, logging.Info, "extracted %d valid symbols from %d total", len(valid), len(valid)+len(rejected))

	if len(valid) == 0 {
		return model.SymbolList{}, ErrNoValidSymbols
	}

	result := model.SymbolList{Symbols: valid, TotalFound: len(valid)}
	if maxSymbols > 0 && len(valid) > maxSymbols {
		result.Symbols = valid[:maxSymbols]
	}
	util.Logf(ctx, logging.Info, "processing %d symbols for this run", len(result.Symbols))

	return result, nil
}

// CleanSymbols trims the raw entries and splits them into valid and rejected symbols.
// Empty entries are dropped and valid symbols are deduplicated, both keeping their order.
func CleanSymbols(raw []string) (valid, rejected []string) {
	seen := make(map[string]bool, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		switch {
		case s == "":
			continue
		case !ValidSymbol(s):
			rejected = append(rejected, s)
		case !seen[s]:
			seen[s] = true
			valid = append(valid, s)
		}
	}
	return
}

// ValidSymbol reports whether s has at most five characters and, ignoring '.' and '-',
// consists of letters and digits only.
func ValidSymbol(s string) bool {
	if s == "" || utf8.RuneCountInString(s) > 5 {
		return false
	}
	stripped := strings.NewReplacer(".", "", "-", "").Replace(s)
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

// Window returns the trailing window of days ending at now.
func Window(now time.Time, days int) (from, to time.Time) {
	return now.AddDate(0, 0, -days), now
}

// FetchBars requests the daily bars of symbol in [from, to], regular session only.
func FetchBars(ctx context.Context, src PriceSource, symbol string, from, to time.Time) (model.RawFrame, error) {
	util.Logf(ctx, logging.Debug, "requesting %q candles (%v - %v) / %s", symbol, from, to, api.Daily)
	return src.Candles(ctx, api.CandlesRequest{
		Symbol:   symbol,
		Interval: api.Daily,
		From:     from,
		To:       to,
		PrePost:  false,
	})
}
