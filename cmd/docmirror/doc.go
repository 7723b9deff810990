// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

// Package main is the docmirror command line tool.
//
// docmirror mirrors one MongoDB collection into a DuckDB table by reading
// its change stream in bounded windows. Every row written carries the
// change position (time and increment) it came from, so the newest row
// of the table is the resume point of the next run and no external
// checkpoint store is needed.
//
// # Commands
//
//	docmirror --config docmirror.yaml stream
//	docmirror --config docmirror.yaml mongoexport-insert -e export.json -t 1700000000 -i 1
//	docmirror --config docmirror.yaml schedule --interval 1m
//	docmirror --config docmirror.yaml watermark
//	docmirror --config docmirror.yaml stats
//
// stream runs one pass and is the default when no subcommand is given.
// mongoexport-insert seeds the table from a mongoexport file, stamping every
// row with the given position. schedule runs passes on an interval under
// a supervisor tree, behind a circuit breaker, and optionally serves
// health, status and Prometheus metrics over HTTP. watermark prints the
// current resume point as JSON. stats prints row counts of the table and
// its latest-state view.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (MONGODB_URI, DUCKDB_PATH, NATS_URL, ...)
//   - Config file (--config, CONFIG_PATH, or config.yaml)
//   - Built-in defaults
//
// Setting DEBUG to any value forces debug logging.
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the running pass. A pass interrupted before its
// batch is committed leaves the table untouched, and a rerun resumes from
// the same watermark.
package main
