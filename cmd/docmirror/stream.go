// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/docmirror/internal/logging"
)

// NewStreamCommand creates the stream command.
func NewStreamCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stream",
		Short: "Apply one window of the change stream",
		Long:  "Reads the change stream from the watermark until it has no more events ready, then applies the window to the warehouse.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStream(cmd.Context(), opts)
		},
	}
}

func runStream(ctx context.Context, opts *RootOptions) error {
	a, runner, err := openPipeline(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := runner.RunPass(ctx)

	// The pass may have been cut short by a signal; the push still gets to run.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	a.pushMetrics(pushCtx)

	if err != nil {
		return err
	}

	logging.Info().
		Str("run_id", report.RunID).
		Int("events", report.Events).
		Int64("inserted", report.Applied.Inserted).
		Int64("updated", report.Applied.Updated).
		Int64("deleted", report.Applied.Deleted).
		Int64("duration_ms", report.DurationMS).
		Msg("Stream pass complete")
	return nil
}
