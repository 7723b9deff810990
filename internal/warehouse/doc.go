// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

// Package warehouse is the DuckDB destination of the mirror.
//
// # Overview
//
// A Warehouse owns one DuckDB database file and one mirrored table whose
// columns are derived from the configured schema. The table is append
// oriented: every change lands as a new row stamped with its change stream
// position, and the companion view <table>_latest exposes the current state
// of each document.
//
// # Files
//
//   - warehouse.go: lifecycle (open, pool configuration, checkpoint, close)
//   - tables.go: table, staging table and latest-state view DDL
//   - load.go: newline-delimited JSON loads through read_json
//   - merge.go: staged merge and identifier deletes
//   - head.go: the most recent row, used to recover the watermark
//
// # Statements
//
// Loads are single INSERT ... SELECT statements over read_json with the
// column types spelled out, so rows missing a key get NULL in that column.
// Merges run in one transaction: a target-missing check, then MERGE INTO
// with the staged rows reduced to one per identifier.
//
// # Thread Safety
//
// The underlying *sql.DB is safe for concurrent use. A pass issues its
// statements sequentially.
package warehouse
