// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

// Package logging provides centralized zerolog-based structured logging for Docmirror.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//	defer logging.Close()
//
//	logging.Info().Str("table", "orders").Msg("Pass started")
//
//	// Every pass carries its run id as correlation_id.
//	ctx = logging.ContextWithCorrelationID(ctx, runID)
//	logging.Ctx(ctx).Info().Int("inserted", n).Msg("Batch applied")
//
// # File Output
//
// When Config.File is set, log lines are written to stderr and to a
// size-rotated file managed by lumberjack. Close flushes and closes it.
//
// # slog Bridge
//
// NewSlogHandler and NewSlogLogger expose the global logger as a slog.Handler
// so that sutureslog can report supervisor events through zerolog.
package logging
