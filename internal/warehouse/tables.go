// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/docmirror/internal/logging"
)

// EnsureTable creates the mirrored table from the schema if it does not
// exist. An existing table is left untouched.
func (w *Warehouse) EnsureTable(ctx context.Context) error {
	ctx, cancel := w.ensureContext(ctx)
	defer cancel()

	defs := make([]string, len(w.columns))
	for i, c := range w.columns {
		defs[i] = quoteIdent(c.Name) + " " + c.Type
	}
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(w.Table()), strings.Join(defs, ", "))
	if _, err := w.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", w.Table(), err)
	}
	return nil
}

// TableExists reports whether a base table named name exists.
func (w *Warehouse) TableExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := w.ensureContext(ctx)
	defer cancel()

	var n int64
	err := w.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM duckdb_tables() WHERE table_name = ? AND NOT internal", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", name, err)
	}
	return n > 0, nil
}

// CreateStaging (re)creates the empty staging table with the mirrored
// table's columns.
func (w *Warehouse) CreateStaging(ctx context.Context) error {
	ctx, cancel := w.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s LIMIT 0",
		quoteIdent(w.StagingTable()), quoteIdent(w.Table()))
	if _, err := w.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create staging table %s: %w", w.StagingTable(), err)
	}
	return nil
}

// DropTable drops name. A missing table is not an error.
func (w *Warehouse) DropTable(ctx context.Context, name string) error {
	ctx, cancel := w.ensureContext(ctx)
	defer cancel()

	if _, err := w.conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	return nil
}

// ViewExists reports whether a user view named name exists.
func (w *Warehouse) ViewExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := w.ensureContext(ctx)
	defer cancel()

	var n int64
	err := w.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM duckdb_views() WHERE view_name = ? AND NOT internal", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up view %s: %w", name, err)
	}
	return n > 0, nil
}

// CreateLatestView creates <table>_latest: for every non-NULL identifier the
// single row with the highest (time, increment).
func (w *Warehouse) CreateLatestView(ctx context.Context) error {
	ctx, cancel := w.ensureContext(ctx)
	defer cancel()

	id := quoteIdent(w.layout.IdentifierField)
	query := fmt.Sprintf(`CREATE VIEW IF NOT EXISTS %s AS
SELECT * FROM %s
WHERE %s IS NOT NULL
QUALIFY row_number() OVER (PARTITION BY %s ORDER BY %s) = 1`,
		quoteIdent(w.LatestViewName()), quoteIdent(w.Table()), id, id, w.recencyOrder())
	if _, err := w.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create view %s: %w", w.LatestViewName(), err)
	}
	logging.Info().Str("view", w.LatestViewName()).Msg("Created latest-state view")
	return nil
}

// Count returns the number of rows in the table or view name.
func (w *Warehouse) Count(ctx context.Context, name string) (int64, error) {
	ctx, cancel := w.ensureContext(ctx)
	defer cancel()

	var n int64
	if err := w.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", name, err)
	}
	return n, nil
}

// recencyOrder orders rows newest first.
func (w *Warehouse) recencyOrder() string {
	return fmt.Sprintf("%s DESC NULLS LAST, %s DESC NULLS LAST",
		quoteIdent(w.layout.TimeField), quoteIdent(w.layout.IncrementField))
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
