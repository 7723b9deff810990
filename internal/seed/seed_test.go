// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/docmirror/internal/changefeed"
	"github.com/tomtom215/docmirror/internal/config"
	"github.com/tomtom215/docmirror/internal/schema"
	"github.com/tomtom215/docmirror/internal/spool"
	"github.com/tomtom215/docmirror/internal/warehouse"
)

const testSchema = `[
  {"name": "_id", "type": "STRING"},
  {"name": "qty", "type": "INTEGER"}
]`

func newProjector(t *testing.T) *schema.Projector {
	t.Helper()
	s, err := schema.Load(strings.NewReader(testSchema))
	if err != nil {
		t.Fatalf("schema.Load: %v", err)
	}
	return schema.NewProjector(s, "time", "increment")
}

// fakeDestination captures the loaded spool file.
type fakeDestination struct {
	ensured bool
	rows    []map[string]any
	loadErr error
}

func (f *fakeDestination) Table() string { return "orders" }

func (f *fakeDestination) EnsureTable(context.Context) error {
	f.ensured = true
	return nil
}

func (f *fakeDestination) LoadNDJSON(_ context.Context, _, path string) (int64, error) {
	if f.loadErr != nil {
		return 0, f.loadErr
	}
	lines, err := spool.ReadLines(path)
	if err != nil {
		return 0, err
	}
	for _, line := range lines {
		doc, err := decodeLine(line)
		if err != nil {
			return 0, err
		}
		f.rows = append(f.rows, doc)
	}
	return int64(len(lines)), nil
}

func decodeLine(line string) (map[string]any, error) {
	var m map[string]any
	err := json.Unmarshal([]byte(line), &m)
	return m, err
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRun_Formats(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantRead    int64
		wantWritten int64
		wantSkipped int64
	}{
		{
			name:        "json array",
			content:     `[{"_id": {"$oid": "5f1d7a3b9c1e4a0001a1b2c3"}, "qty": {"$numberLong": "42"}}, {"_id": "b", "qty": 1}]`,
			wantRead:    2,
			wantWritten: 2,
		},
		{
			name:        "newline delimited",
			content:     "{\"_id\": \"a\", \"qty\": 1}\n\n{\"_id\": \"b\", \"extra\": true}\n",
			wantRead:    2,
			wantWritten: 2,
		},
		{
			name:        "non objects skipped",
			content:     `[{"_id": "a"}, null, 5]`,
			wantRead:    3,
			wantWritten: 1,
			wantSkipped: 2,
		},
		{
			name:    "empty file",
			content: "  \n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := &fakeDestination{}
			s := New(dest, newProjector(t), t.TempDir())
			stats, err := s.Run(context.Background(), writeFile(t, tt.content), changefeed.Position{Time: 100, Sequence: 2})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if stats.Read != tt.wantRead || stats.Written != tt.wantWritten || stats.Skipped != tt.wantSkipped {
				t.Errorf("stats = %+v", stats)
			}
			if !dest.ensured {
				t.Error("EnsureTable not called")
			}
			for _, row := range dest.rows {
				if _, ok := row["extra"]; ok {
					t.Errorf("row carries unknown field: %v", row)
				}
				if row["time"] != float64(100) || row["increment"] != float64(2) {
					t.Errorf("row not stamped at (100,2): %v", row)
				}
			}
		})
	}
}

func TestRun_UnwrapsExtendedJSON(t *testing.T) {
	dest := &fakeDestination{}
	content := `[{"_id": {"$oid": "5f1d7a3b9c1e4a0001a1b2c3"}, "qty": {"$numberLong": "42"}}]`
	if _, err := New(dest, newProjector(t), t.TempDir()).Run(context.Background(), writeFile(t, content), changefeed.Position{Time: 1}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(dest.rows) != 1 {
		t.Fatalf("rows = %v", dest.rows)
	}
	if dest.rows[0]["_id"] != "5f1d7a3b9c1e4a0001a1b2c3" || dest.rows[0]["qty"] != float64(42) {
		t.Errorf("row = %v", dest.rows[0])
	}
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := New(&fakeDestination{}, newProjector(t), t.TempDir()).
			Run(context.Background(), filepath.Join(t.TempDir(), "nope.json"), changefeed.Position{})
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("malformed line", func(t *testing.T) {
		_, err := New(&fakeDestination{}, newProjector(t), t.TempDir()).
			Run(context.Background(), writeFile(t, "{\"_id\": \"a\"}\n{\"_id\": \n"), changefeed.Position{})
		if err == nil || !strings.Contains(err.Error(), "document 2") {
			t.Fatalf("err = %v, want document 2 failure", err)
		}
	})

	t.Run("load fails", func(t *testing.T) {
		boom := errors.New("Conversion Error")
		_, err := New(&fakeDestination{loadErr: boom}, newProjector(t), t.TempDir()).
			Run(context.Background(), writeFile(t, `{"_id": "a"}`), changefeed.Position{})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want %v", err, boom)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(&fakeDestination{}, newProjector(t), t.TempDir()).
			Run(ctx, writeFile(t, `{"_id": "a"}`), changefeed.Position{})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	})
}

func TestRun_IntoDuckDB(t *testing.T) {
	p := newProjector(t)
	cfg := &config.WarehouseConfig{Path: ":memory:", Table: "orders", Threads: 1, JobTimeout: time.Minute}
	w, err := warehouse.Open(cfg, warehouse.Layout{
		Schema:          p.Schema(),
		IdentifierField: "_id",
		TimeField:       "time",
		IncrementField:  "increment",
	})
	if err != nil {
		t.Fatalf("warehouse.Open: %v", err)
	}
	defer w.Close()

	content := "{\"_id\": \"a\", \"qty\": 1}\n{\"_id\": \"b\", \"qty\": {\"$numberInt\": \"2\"}}\n"
	s := New(w, p, t.TempDir())
	s.SetProgressEvery(1)
	stats, err := s.Run(context.Background(), writeFile(t, content), changefeed.Position{Time: 9, Sequence: 4})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Written != 2 {
		t.Errorf("Written = %d, want 2", stats.Written)
	}

	head, found, err := w.LatestRow(context.Background())
	if err != nil || !found {
		t.Fatalf("LatestRow: %v, found=%v", err, found)
	}
	if head.Time.Int64 != 9 || head.Increment.Int64 != 4 {
		t.Errorf("head = %+v, want (9,4)", head)
	}
}
