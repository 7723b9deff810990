// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// maxMissingSample caps how many unmatched identifiers a merge reports.
const maxMissingSample = 10

// nullID stands in for a staged row without an identifier.
const nullID = "<null>"

// MergeResult is the outcome of MergeStaged. When MissingIDs is non-empty
// nothing was written.
type MergeResult struct {
	Updated    int64
	MissingIDs []string
}

// MergeStaged overwrites the destination rows of every staged identifier
// with the newest staged row for that identifier. All non-identifier
// columns are replaced. If any staged identifier has no destination row
// the transaction is rolled back and the offending identifiers returned.
func (w *Warehouse) MergeStaged(ctx context.Context) (MergeResult, error) {
	ctx, cancel := w.ensureContext(ctx)
	defer cancel()

	tx, err := w.conn.BeginTx(ctx, nil)
	if err != nil {
		return MergeResult{}, fmt.Errorf("failed to begin merge transaction: %w", err)
	}

	missing, err := w.missingTargets(ctx, tx)
	if err != nil {
		rollbackQuietly(tx)
		return MergeResult{}, err
	}
	if len(missing) > 0 {
		rollbackQuietly(tx)
		return MergeResult{MissingIDs: missing}, nil
	}

	res, err := tx.ExecContext(ctx, w.mergeStatement())
	if err != nil {
		rollbackQuietly(tx)
		return MergeResult{}, fmt.Errorf("failed to merge %s into %s: %w", w.StagingTable(), w.Table(), err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		rollbackQuietly(tx)
		return MergeResult{}, fmt.Errorf("failed to read merged row count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return MergeResult{}, fmt.Errorf("failed to commit merge: %w", err)
	}
	return MergeResult{Updated: updated}, nil
}

func (w *Warehouse) missingTargets(ctx context.Context, tx *sql.Tx) ([]string, error) {
	id := quoteIdent(w.layout.IdentifierField)
	query := fmt.Sprintf(`SELECT DISTINCT CAST(s.%s AS VARCHAR) AS id FROM %s s
WHERE NOT EXISTS (SELECT 1 FROM %s t WHERE CAST(t.%s AS VARCHAR) = CAST(s.%s AS VARCHAR))
ORDER BY id NULLS FIRST
LIMIT %d`,
		id, quoteIdent(w.StagingTable()), quoteIdent(w.Table()), id, id, maxMissingSample)

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to check merge targets: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var missing []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan merge target: %w", err)
		}
		if v.Valid {
			missing = append(missing, v.String)
		} else {
			missing = append(missing, nullID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to check merge targets: %w", err)
	}
	return missing, nil
}

func (w *Warehouse) mergeStatement() string {
	id := quoteIdent(w.layout.IdentifierField)
	sets := make([]string, 0, len(w.columns))
	for _, c := range w.columns {
		if c.Name == w.layout.IdentifierField {
			continue
		}
		col := quoteIdent(c.Name)
		sets = append(sets, col+" = staged."+col)
	}
	return fmt.Sprintf(`MERGE INTO %s AS target
USING (
	SELECT * FROM %s
	QUALIFY row_number() OVER (PARTITION BY %s ORDER BY %s) = 1
) AS staged
ON CAST(target.%s AS VARCHAR) = CAST(staged.%s AS VARCHAR)
WHEN MATCHED THEN UPDATE SET %s`,
		quoteIdent(w.Table()), quoteIdent(w.StagingTable()), id, w.recencyOrder(), id, id, strings.Join(sets, ", "))
}

// DeleteIdentifiers removes every row whose identifier is in ids in one
// statement and returns the number of rows removed.
func (w *Warehouse) DeleteIdentifiers(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := w.ensureContext(ctx)
	defer cancel()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE CAST(%s AS VARCHAR) IN (%s)",
		quoteIdent(w.Table()), quoteIdent(w.layout.IdentifierField), strings.Join(placeholders, ", "))

	res, err := w.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %d identifiers from %s: %w", len(ids), w.Table(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted row count: %w", err)
	}
	return n, nil
}
