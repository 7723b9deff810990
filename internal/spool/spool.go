// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package spool

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

// File names inside a run directory.
const (
	InsertFile = "insert.ndjson"
	UpdateFile = "update.ndjson"
	DeleteFile = "delete.ndjson"
)

// ErrClosed is returned when appending to a closed spool.
var ErrClosed = errors.New("spool closed")

// Spool is one run directory with its insert, update and delete files.
// It is not safe for concurrent use.
type Spool struct {
	dir    string
	insert *lineFile
	update *lineFile
	closed bool

	inserts int
	updates int
	deletes int
}

type lineFile struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

// Create makes a fresh run directory under dir (the OS temp directory when
// dir is empty) and opens the insert and update files.
func Create(dir string) (*Spool, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create work directory: %w", err)
		}
	}
	runDir, err := os.MkdirTemp(dir, "docmirror-run-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	s := &Spool{dir: runDir}
	if s.insert, err = openLineFile(filepath.Join(runDir, InsertFile)); err != nil {
		os.RemoveAll(runDir) //nolint:errcheck // Best effort cleanup on error
		return nil, err
	}
	if s.update, err = openLineFile(filepath.Join(runDir, UpdateFile)); err != nil {
		s.insert.close() //nolint:errcheck // Best effort cleanup on error
		os.RemoveAll(runDir) //nolint:errcheck // Best effort cleanup on error
		return nil, err
	}
	return s, nil
}

//nolint:gosec // G304: path is inside a directory created by this package
func openLineFile(path string) (*lineFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create spool file: %w", err)
	}
	return &lineFile{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

func (lf *lineFile) writeLine(b []byte) error {
	if _, err := lf.w.Write(b); err != nil {
		return err
	}
	return lf.w.WriteByte('\n')
}

func (lf *lineFile) close() error {
	flushErr := lf.w.Flush()
	closeErr := lf.f.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// AppendInsert encodes row as one JSON line of the insert file.
func (s *Spool) AppendInsert(row any) error {
	if err := s.append(s.insert, row); err != nil {
		return fmt.Errorf("append insert row: %w", err)
	}
	s.inserts++
	return nil
}

// AppendUpdate encodes row as one JSON line of the update file.
func (s *Spool) AppendUpdate(row any) error {
	if err := s.append(s.update, row); err != nil {
		return fmt.Errorf("append update row: %w", err)
	}
	s.updates++
	return nil
}

func (s *Spool) append(lf *lineFile, row any) error {
	if s.closed {
		return ErrClosed
	}
	b, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return lf.writeLine(b)
}

// WriteDeletes writes the final delete identifiers, one JSON string per
// line, replacing any earlier content of the delete file. Identifiers may
// hold any character, line breaks included.
func (s *Spool) WriteDeletes(ids []string) error {
	if err := WriteDeleteFile(s.DeletePath(), ids); err != nil {
		return fmt.Errorf("write delete file: %w", err)
	}
	s.deletes = len(ids)
	return nil
}

// ReadDeletes reads back the identifiers written by WriteDeletes. A missing
// delete file reads as no identifiers.
func (s *Spool) ReadDeletes() ([]string, error) {
	return ReadDeleteFile(s.DeletePath())
}

// WriteDeleteFile writes ids to path as JSON strings, one per line.
func WriteDeleteFile(path string, ids []string) error {
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		b, err := json.Marshal(id)
		if err != nil {
			return fmt.Errorf("encode identifier: %w", err)
		}
		lines = append(lines, string(b))
	}
	return WriteLines(path, lines)
}

// ReadDeleteFile reads identifiers written by WriteDeleteFile.
func ReadDeleteFile(path string) ([]string, error) {
	lines, err := ReadLines(path)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(lines))
	for i, line := range lines {
		var id string
		if err := json.Unmarshal([]byte(line), &id); err != nil {
			return nil, fmt.Errorf("delete file line %d: %w", i+1, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close flushes and closes the row files. It is safe to call more than once.
func (s *Spool) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.insert.close(), s.update.close())
}

// Remove closes the spool and deletes its run directory.
func (s *Spool) Remove() error {
	closeErr := s.Close()
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}
	return closeErr
}

// Dir returns the run directory.
func (s *Spool) Dir() string { return s.dir }

// InsertPath returns the insert file path.
func (s *Spool) InsertPath() string { return s.insert.path }

// UpdatePath returns the update file path.
func (s *Spool) UpdatePath() string { return s.update.path }

// DeletePath returns the delete file path.
func (s *Spool) DeletePath() string { return filepath.Join(s.dir, DeleteFile) }

// Inserts returns the number of rows appended to the insert file.
func (s *Spool) Inserts() int { return s.inserts }

// Updates returns the number of rows appended to the update file.
func (s *Spool) Updates() int { return s.updates }

// Deletes returns the number of identifiers written to the delete file.
func (s *Spool) Deletes() int { return s.deletes }

// WriteLines writes one value per line to path, truncating it first.
// Values may not contain line breaks.
//
//nolint:gosec // G304: path is chosen by the caller inside a run directory
func WriteLines(path string, lines []string) (err error) {
	for _, line := range lines {
		if strings.ContainsAny(line, "\r\n") {
			return fmt.Errorf("value %q contains a line break", line)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadLines reads the non-empty lines of path. A missing file yields nil.
//
//nolint:gosec // G304: path is chosen by the caller inside a run directory
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// WriteRows writes each row as one JSON line to path, truncating it first.
func WriteRows(path string, rows ...any) error {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
		lines = append(lines, string(b))
	}
	return WriteLines(path, lines)
}
