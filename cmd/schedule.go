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

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on its cron schedule until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		tz, err := timezone()
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to load timezone: %w", err)))
		}
		cs, err := schedule()
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to load schedule: %w", err)))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s := gocron.NewScheduler(tz)
		// runs never overlap
		s.SingletonModeAll()

		job, err := s.Cron(string(cs)).Do(func() {
			res, err := runOnce(ctx, lg)
			if err != nil {
				_ = lg.ErrorErr(fmt.Errorf("run %s failed: %w", res.RunID, err))
			}
		})
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to schedule %q: %w", cs, err)))
		}

		s.StartAsync()
		lg.Defaultf("scheduled %q (%s), next run at %v", cs, tz, job.NextRun())

		<-ctx.Done()
		lg.Defaultf("stopping scheduler")
		s.Stop()
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
