// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/docmirror/internal/api"
	"github.com/tomtom215/docmirror/internal/breaker"
	"github.com/tomtom215/docmirror/internal/logging"
	"github.com/tomtom215/docmirror/internal/supervisor"
	"github.com/tomtom215/docmirror/internal/supervisor/services"
)

// ScheduleOptions holds flags for the schedule command.
type ScheduleOptions struct {
	*RootOptions
	Interval time.Duration
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run stream passes on an interval",
		Long: `Runs a stream pass immediately and then on every interval until
interrupted. Consecutive failures open a circuit breaker that skips passes
until the breaker timeout has elapsed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var interval time.Duration
			if cmd.Flags().Changed("interval") {
				interval = opts.Interval
			}
			return runSchedule(cmd.Context(), opts.RootOptions, interval)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", time.Minute, "time between passes (overrides schedule.interval)")

	return cmd
}

func runSchedule(ctx context.Context, opts *RootOptions, interval time.Duration) error {
	a, runner, err := openPipeline(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	sched := a.cfg.Schedule
	if interval <= 0 {
		interval = sched.Interval
	}

	cb := breaker.New(breaker.Config{
		Name:             "pass",
		FailureThreshold: sched.BreakerFailures,
		MaxRequests:      1,
		Timeout:          sched.BreakerTimeout,
	})
	passSvc := services.NewPassService(runner, interval, cb, string(a.mode))

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	tree.AddPipelineService(passSvc)

	if sched.HTTPAddr != "" {
		server := &http.Server{
			Addr: sched.HTTPAddr,
			Handler: api.NewRouter(api.Options{
				Status:      runner,
				Breaker:     passSvc,
				Warehouse:   a.wh,
				CORSOrigins: sched.CORSOrigins,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
		logging.Info().Str("addr", sched.HTTPAddr).Msg("Status server enabled")
	}

	logging.Info().
		Dur("interval", interval).
		Uint32("breaker_failures", sched.BreakerFailures).
		Dur("breaker_timeout", sched.BreakerTimeout).
		Msg("Starting scheduler")

	err = tree.Serve(ctx)

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	logging.Info().
		Int64("passes", passSvc.Passes()).
		Int64("skipped", passSvc.Skipped()).
		Msg("Scheduler stopped")
	return nil
}
