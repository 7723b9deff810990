// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/docmirror/internal/changefeed"
	"github.com/tomtom215/docmirror/internal/logging"
	"github.com/tomtom215/docmirror/internal/seed"
)

// SeedOptions holds flags for the mongoexport-insert command.
type SeedOptions struct {
	*RootOptions
	ExportFile string
	Time       uint32
	Increment  uint32
}

// NewSeedCommand creates the mongoexport-insert command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mongoexport-insert",
		Short: "Seed the table from a mongoexport file",
		Long: `Loads every document of a mongoexport file (JSON array or one document
per line) into the table, stamped with the given change position. Later
stream passes resume from that position.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ExportFile, "export-file", "e", "", "mongoexport output file (required)")
	cmd.Flags().Uint32VarP(&opts.Time, "time", "t", 0, "change stream time to stamp rows with (required)")
	cmd.Flags().Uint32VarP(&opts.Increment, "increment", "i", 0, "change stream increment to stamp rows with (required)")
	_ = cmd.MarkFlagRequired("export-file")
	_ = cmd.MarkFlagRequired("time")
	_ = cmd.MarkFlagRequired("increment")

	return cmd
}

func runSeed(ctx context.Context, opts *SeedOptions) error {
	a, err := openWarehouse(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.close()

	pos := changefeed.Position{Time: opts.Time, Sequence: opts.Increment}
	stats, err := seed.New(a.wh, a.projector, a.cfg.WorkDir).Run(ctx, opts.ExportFile, pos)

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	a.pushMetrics(pushCtx)

	if err != nil {
		return err
	}

	logging.Info().
		Str("file", opts.ExportFile).
		Int64("written", stats.Written).
		Int64("skipped", stats.Skipped).
		Msg("Seed complete")
	return nil
}
