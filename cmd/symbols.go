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
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajjensen13/sp500etl/internal/util"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List the symbols the next run would process",
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		ctx := util.WithLogger(context.Background(), lg)
		sl, err := listSymbols(ctx)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to list symbols: %w", err)))
		}

		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(sl.Symbols, "\n"))
		lg.Defaultf("listed %d of %d symbols", len(sl.Symbols), sl.TotalFound)
	},
}

func init() {
	rootCmd.AddCommand(symbolsCmd)
}
