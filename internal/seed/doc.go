// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

/*
Package seed bulk-loads a mongoexport file into an empty warehouse table.

Every document is projected through the schema and stamped with one
operator-supplied position, normally the cluster time taken just before the
export started. The next stream pass resumes right after that position, so
changes made during the export are replayed on top of the seed.

Both mongoexport output formats are accepted: a JSON array (--jsonArray) and
one document per line.
*/
package seed
