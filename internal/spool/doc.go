// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

// Package spool holds the per-run intermediate files written while a change
// window is drained and read back when the batch is applied.
//
// Layout of one run directory (docmirror-run-NNNN):
//
//	docmirror-run-NNNN/
//	├── insert.ndjson   (one projected row per line)
//	├── update.ndjson   (one projected row per line, merge mode only)
//	└── delete.ndjson   (one identifier per line, as a JSON string)
//
// Rows are appended as they are classified. Deletes are written once at the
// end of the window because a later insert may still cancel them, and the
// reconciler reads them back from the delete file. The directory is removed
// with Remove when the pass finishes, whatever the outcome.
package spool
