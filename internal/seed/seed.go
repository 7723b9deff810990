// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package seed

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/docmirror/internal/changefeed"
	"github.com/tomtom215/docmirror/internal/logging"
	"github.com/tomtom215/docmirror/internal/metrics"
	"github.com/tomtom215/docmirror/internal/schema"
	"github.com/tomtom215/docmirror/internal/source"
	"github.com/tomtom215/docmirror/internal/spool"
)

const (
	// DefaultProgressEvery is how many documents are read between progress logs.
	DefaultProgressEvery = 10000

	maxLineSize = 16 * 1024 * 1024
)

// Destination is the warehouse surface a seed writes through.
type Destination interface {
	Table() string
	EnsureTable(ctx context.Context) error
	LoadNDJSON(ctx context.Context, table, path string) (int64, error)
}

// Stats summarizes a seed run.
type Stats struct {
	Read     int64
	Written  int64
	Skipped  int64 // values that are not JSON objects
	Duration time.Duration
}

// Seeder loads export files into the destination table.
type Seeder struct {
	dest          Destination
	projector     *schema.Projector
	workDir       string
	progressEvery int64
}

// New returns a Seeder. workDir holds the spool; empty means the OS temp dir.
func New(dest Destination, projector *schema.Projector, workDir string) *Seeder {
	return &Seeder{
		dest:          dest,
		projector:     projector,
		workDir:       workDir,
		progressEvery: DefaultProgressEvery,
	}
}

// SetProgressEvery changes the progress log interval.
func (s *Seeder) SetProgressEvery(n int64) {
	if n > 0 {
		s.progressEvery = n
	}
}

// Run loads the export at path with every row stamped at pos.
func (s *Seeder) Run(ctx context.Context, path string, pos changefeed.Position) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	//nolint:gosec // G304: path is an operator-supplied export file
	f, err := os.Open(path)
	if err != nil {
		return stats, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	sp, err := spool.Create(s.workDir)
	if err != nil {
		return stats, err
	}
	defer func() {
		if err := sp.Remove(); err != nil {
			logging.Warn().Err(err).Str("dir", sp.Dir()).Msg("Failed to remove seed spool")
		}
	}()

	logging.Info().
		Str("file", path).
		Str("table", s.dest.Table()).
		Str("position", pos.String()).
		Msg("Starting seed")

	err = readDocuments(bufio.NewReader(f), func(raw []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Read++
		if err := s.write(sp, raw, pos); err != nil {
			if errors.Is(err, errNotObject) {
				stats.Skipped++
			} else {
				return fmt.Errorf("document %d: %w", stats.Read, err)
			}
		}
		if stats.Read%s.progressEvery == 0 {
			logging.Info().
				Int64("read", stats.Read).
				Int64("skipped", stats.Skipped).
				Msg("Seed progress")
		}
		return nil
	})
	if err != nil {
		return stats, err
	}
	if err := sp.Close(); err != nil {
		return stats, fmt.Errorf("failed to flush spool: %w", err)
	}

	if err := s.dest.EnsureTable(ctx); err != nil {
		return stats, fmt.Errorf("ensure table %s: %w", s.dest.Table(), err)
	}
	if sp.Inserts() > 0 {
		n, err := s.dest.LoadNDJSON(ctx, s.dest.Table(), sp.InsertPath())
		if err != nil {
			return stats, fmt.Errorf("load seed rows into %s: %w", s.dest.Table(), err)
		}
		stats.Written = n
	}

	stats.Duration = time.Since(start)
	metrics.RecordSeed(stats.Written, stats.Skipped)
	logging.Info().
		Int64("read", stats.Read).
		Int64("written", stats.Written).
		Int64("skipped", stats.Skipped).
		Dur("duration", stats.Duration).
		Msg("Seed completed")
	return stats, nil
}

var errNotObject = errors.New("not a JSON object")

func (s *Seeder) write(sp *spool.Spool, raw []byte, pos changefeed.Position) error {
	if len(raw) == 0 || raw[0] != '{' {
		return errNotObject
	}
	doc, err := source.DecodeJSONDocument(raw)
	if err != nil {
		return err
	}
	return sp.AppendInsert(s.projector.ProjectAt(doc, pos))
}

// readDocuments calls fn with every top-level value of r, either the
// elements of a JSON array or one value per line.
func readDocuments(r *bufio.Reader, fn func([]byte) error) error {
	first, err := peekNonSpace(r)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read export file: %w", err)
	}

	if first == '[' {
		var docs []json.RawMessage
		if err := json.NewDecoder(r).Decode(&docs); err != nil {
			return fmt.Errorf("decode export array: %w", err)
		}
		for _, raw := range docs {
			if err := fn(bytes.TrimSpace(raw)); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read export file: %w", err)
	}
	return nil
}

func peekNonSpace(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := r.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}
