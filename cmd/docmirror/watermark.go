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

	"github.com/tomtom215/docmirror/internal/reconcile"
)

// NewWatermarkCommand creates the watermark command.
func NewWatermarkCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watermark",
		Short: "Print the current watermark as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatermark(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
}

func runWatermark(ctx context.Context, opts *RootOptions, out io.Writer) error {
	a, err := openWarehouse(opts)
	if err != nil {
		return err
	}
	defer a.close()

	return printWatermark(ctx, reconcile.NewWatermarkStore(a.wh), out)
}

// printWatermark writes the watermark of store to out.
func printWatermark(ctx context.Context, store *reconcile.WatermarkStore, out io.Writer) error {
	wm, err := store.CurrentWatermark(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(wm, "", "  ")
	if err != nil {
		return fmt.Errorf("encode watermark: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
