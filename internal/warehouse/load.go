// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package warehouse

import (
	"context"
	"fmt"
	"strings"
)

// LoadNDJSON appends the newline-delimited JSON file at path to table in a
// single statement and returns the number of rows written. Keys missing
// from a line become NULL.
func (w *Warehouse) LoadNDJSON(ctx context.Context, table, path string) (int64, error) {
	ctx, cancel := w.ensureContext(ctx)
	defer cancel()

	res, err := w.conn.ExecContext(ctx, w.loadStatement(table, path))
	if err != nil {
		return 0, fmt.Errorf("failed to load %s into %s: %w", path, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read loaded row count: %w", err)
	}
	return n, nil
}

func (w *Warehouse) loadStatement(table, path string) string {
	names := make([]string, len(w.columns))
	types := make([]string, len(w.columns))
	for i, c := range w.columns {
		names[i] = quoteIdent(c.Name)
		types[i] = quoteLiteral(c.Name) + ": " + quoteLiteral(c.Type)
	}
	cols := strings.Join(names, ", ")
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM read_json(%s, format = 'newline_delimited', columns = {%s})",
		quoteIdent(table), cols, cols, quoteLiteral(path), strings.Join(types, ", "))
}
