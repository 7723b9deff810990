// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/docmirror/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		if err := logging.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close log file")
		}
	}()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		logging.Error().Err(err).Msg("docmirror failed")
		return 1
	}
	return 0
}
