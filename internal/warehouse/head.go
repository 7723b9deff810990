// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// HeadRow is the most recent row of the mirrored table. Any column may be
// NULL: placeholder rows carry no identifier.
type HeadRow struct {
	ID        sql.NullString
	Time      sql.NullInt64
	Increment sql.NullInt64
}

// LatestRow returns the row with the highest (time, increment). found is
// false when the table is empty.
func (w *Warehouse) LatestRow(ctx context.Context) (row HeadRow, found bool, err error) {
	ctx, cancel := w.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT CAST(%s AS VARCHAR), CAST(%s AS BIGINT), CAST(%s AS BIGINT)
FROM %s
ORDER BY %s
LIMIT 1`,
		quoteIdent(w.layout.IdentifierField),
		quoteIdent(w.layout.TimeField),
		quoteIdent(w.layout.IncrementField),
		quoteIdent(w.Table()),
		w.recencyOrder())

	err = w.conn.QueryRowContext(ctx, query).Scan(&row.ID, &row.Time, &row.Increment)
	if errors.Is(err, sql.ErrNoRows) {
		return HeadRow{}, false, nil
	}
	if err != nil {
		return HeadRow{}, false, fmt.Errorf("failed to read latest row of %s: %w", w.Table(), err)
	}
	return row, true, nil
}
