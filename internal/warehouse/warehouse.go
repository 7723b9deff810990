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
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/docmirror/internal/config"
	"github.com/tomtom215/docmirror/internal/logging"
	"github.com/tomtom215/docmirror/internal/schema"
)

// Table name suffixes.
const (
	StagingSuffix = "_tmp"
	LatestSuffix  = "_latest"
)

const defaultJobTimeout = 10 * time.Minute

// ErrLayout is returned by Open when the table layout is unusable.
var ErrLayout = errors.New("invalid table layout")

// Layout describes the mirrored table.
type Layout struct {
	Schema          *schema.Schema
	IdentifierField string
	TimeField       string
	IncrementField  string
}

// Warehouse wraps the DuckDB connection and the mirrored table.
type Warehouse struct {
	conn    *sql.DB
	cfg     *config.WarehouseConfig
	layout  Layout
	columns []schema.Column
}

// Open opens (or creates) the DuckDB database described by cfg. The table
// itself is not created; see EnsureTable.
func Open(cfg *config.WarehouseConfig, layout Layout) (*Warehouse, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil warehouse config", ErrLayout)
	}
	columns, err := layoutColumns(layout)
	if err != nil {
		return nil, err
	}

	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	if cfg.Path != ":memory:" {
		dir := filepath.Dir(cfg.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d", cfg.Path, numThreads)
	if cfg.MaxMemory != "" {
		connStr += "&max_memory=" + cfg.MaxMemory
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Warehouse{
		conn:    conn,
		cfg:     cfg,
		layout:  layout,
		columns: columns,
	}
	w.configureConnectionPool()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to connect to database %s: %w", cfg.Path, err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Str("table", cfg.Table).
		Int("threads", numThreads).
		Int("columns", len(columns)).
		Msg("Opened DuckDB warehouse")
	return w, nil
}

// layoutColumns resolves the table columns and checks that the identifier,
// time and increment columns exist.
func layoutColumns(layout Layout) ([]schema.Column, error) {
	if layout.Schema == nil {
		return nil, fmt.Errorf("%w: no schema", ErrLayout)
	}
	if layout.IdentifierField == "" || layout.TimeField == "" || layout.IncrementField == "" {
		return nil, fmt.Errorf("%w: identifier, time and increment fields are required", ErrLayout)
	}
	if !layout.Schema.Has(layout.IdentifierField) {
		return nil, fmt.Errorf("%w: schema does not declare identifier field %q", ErrLayout, layout.IdentifierField)
	}
	columns, err := layout.Schema.Columns(layout.TimeField, layout.IncrementField)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLayout, err)
	}
	return columns, nil
}

// configureConnectionPool sets connection pool parameters
func (w *Warehouse) configureConnectionPool() {
	w.conn.SetMaxOpenConns(runtime.NumCPU())
	w.conn.SetMaxIdleConns(2)
	w.conn.SetConnMaxLifetime(time.Hour)
	w.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// ensureContext bounds ctx by the configured job timeout if it has no
// deadline of its own.
func (w *Warehouse) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := w.cfg.JobTimeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	if ctx == nil {
		return context.WithTimeout(context.Background(), timeout)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}

// Conn returns the underlying SQL database connection.
func (w *Warehouse) Conn() *sql.DB {
	return w.conn
}

// Table returns the mirrored table name.
func (w *Warehouse) Table() string {
	return w.cfg.Table
}

// StagingTable returns the merge staging table name.
func (w *Warehouse) StagingTable() string {
	return w.cfg.Table + StagingSuffix
}

// LatestViewName returns the latest-state view name.
func (w *Warehouse) LatestViewName() string {
	return w.cfg.Table + LatestSuffix
}

// Path returns the path of the database file.
func (w *Warehouse) Path() string {
	return w.cfg.Path
}

// Ping checks if the database connection is alive
func (w *Warehouse) Ping(ctx context.Context) error {
	if w.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return w.conn.PingContext(ctx)
}

// Checkpoint forces a WAL checkpoint
func (w *Warehouse) Checkpoint(ctx context.Context) error {
	ctx, cancel := w.ensureContext(ctx)
	defer cancel()

	if _, err := w.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// Close checkpoints and closes the database.
func (w *Warehouse) Close() error {
	if w.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := w.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()

	err := w.conn.Close()
	w.conn = nil
	return err
}
