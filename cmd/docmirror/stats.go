// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/docmirror/internal/logging"
	"github.com/tomtom215/docmirror/internal/warehouse"
)

// StatsSource reports warehouse statistics.
type StatsSource interface {
	Stats(ctx context.Context) (warehouse.Stats, error)
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print row counts of the table and its latest-state view as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openWarehouse(opts)
			if err != nil {
				return err
			}
			defer a.close()
			return printStats(cmd.Context(), a.wh, cmd.OutOrStdout())
		},
	}
}

func printStats(ctx context.Context, src StatsSource, out io.Writer) error {
	st, err := src.Stats(ctx)
	if err != nil {
		return fmt.Errorf("collect warehouse stats: %w", err)
	}
	if st.StagingLeftover {
		logging.Warn().Str("table", st.Table).Msg("Staging table left by an interrupted merge; the next merge replaces it")
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
