// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

// Package schema holds the destination schema and projects semi-structured
// source documents onto it.
//
// The schema is a BigQuery-style field list. Each field is either a scalar
// type or a RECORD holding nested fields. Load flattens it into dotted paths,
// records expanded depth-first in declaration order:
//
//	[{"name":"_id","type":"STRING"},
//	 {"name":"address","type":"RECORD","fields":[
//	     {"name":"city","type":"STRING"},
//	     {"name":"zip","type":"STRING"}]}]
//
//	=> _id, address.city, address.zip
//
// Projection runs in two steps. Normalize decodes every raw value into a
// tagged variant (Scalar, Wrapped, Nested, List) and unwraps Extended JSON
// wrappers such as {"$numberLong": "42"}. Project then copies exactly the
// schema paths that are present into a fresh Row tree. Absent paths are
// omitted; nothing is invented and nothing outside the schema leaks through.
package schema
