// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package reconcile

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/docmirror/internal/changefeed"
	"github.com/tomtom215/docmirror/internal/schema"
	"github.com/tomtom215/docmirror/internal/spool"
	"github.com/tomtom215/docmirror/internal/warehouse"
)

const testSchema = `[
  {"name": "_id", "type": "STRING"},
  {"name": "status", "type": "STRING"},
  {"name": "total", "type": "INTEGER"}
]`

func newTestProjector(t *testing.T) *schema.Projector {
	t.Helper()
	s, err := schema.Load(strings.NewReader(testSchema))
	if err != nil {
		t.Fatalf("schema.Load: %v", err)
	}
	return schema.NewProjector(s, "time", "increment")
}

func pos(t, i uint32) changefeed.Position {
	return changefeed.Position{Time: t, Sequence: i}
}

func insertEv(id string, p changefeed.Position) changefeed.Event {
	return changefeed.Event{Kind: changefeed.KindInsert, ID: id, Position: p,
		Document: map[string]any{"_id": id, "status": "new", "ignored": true}}
}

func updateEv(id, status string, p changefeed.Position) changefeed.Event {
	return changefeed.Event{Kind: changefeed.KindUpdate, ID: id, Position: p,
		Document: map[string]any{"_id": id, "status": status}}
}

func deleteEv(id string, p changefeed.Position) changefeed.Event {
	return changefeed.Event{Kind: changefeed.KindDelete, ID: id, Position: p}
}

func newSpool(t *testing.T) *spool.Spool {
	t.Helper()
	sp, err := spool.Create(t.TempDir())
	if err != nil {
		t.Fatalf("spool.Create: %v", err)
	}
	t.Cleanup(func() { _ = sp.Remove() })
	return sp
}

// drain classifies events in mode and returns the batch.
func drain(t *testing.T, mode Mode, events ...changefeed.Event) *Batch {
	t.Helper()
	c, err := NewClassifier(newTestProjector(t), mode)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	batch, err := c.DrainWindow(context.Background(), changefeed.NewSliceFeed(events...), newSpool(t))
	if err != nil {
		t.Fatalf("DrainWindow: %v", err)
	}
	return batch
}

// readRows decodes a newline-delimited JSON file.
func readRows(t *testing.T, path string) []map[string]any {
	t.Helper()
	lines, err := spool.ReadLines(path)
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	rows := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		rows = append(rows, m)
	}
	return rows
}

func ids(rows []map[string]any) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		id, _ := r["_id"].(string)
		out = append(out, id)
	}
	return out
}

// fakeDestination records every call in order and returns canned results.
type fakeDestination struct {
	mu    sync.Mutex
	calls []string

	viewExists  bool
	mergeResult warehouse.MergeResult

	loadErr   error
	stageErr  error
	mergeErr  error
	deleteErr error
	dropErr   error

	// loaded holds the rows passed to LoadNDJSON, by table.
	loaded  map[string][]string
	deleted []string
}

func newFakeDestination() *fakeDestination {
	return &fakeDestination{loaded: make(map[string][]string)}
}

func (f *fakeDestination) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeDestination) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeDestination) Table() string          { return "orders" }
func (f *fakeDestination) StagingTable() string   { return "orders_tmp" }
func (f *fakeDestination) LatestViewName() string { return "orders_latest" }

func (f *fakeDestination) ViewExists(context.Context, string) (bool, error) {
	f.record("view-exists")
	return f.viewExists, nil
}

func (f *fakeDestination) CreateLatestView(context.Context) error {
	f.record("create-view")
	f.viewExists = true
	return nil
}

func (f *fakeDestination) LoadNDJSON(_ context.Context, table, path string) (int64, error) {
	f.record("load:" + table)
	if f.loadErr != nil {
		return 0, f.loadErr
	}
	lines, err := spool.ReadLines(path)
	if err != nil {
		return 0, err
	}
	f.loaded[table] = append(f.loaded[table], lines...)
	return int64(len(lines)), nil
}

func (f *fakeDestination) CreateStaging(context.Context) error {
	f.record("create-staging")
	return f.stageErr
}

func (f *fakeDestination) DropTable(_ context.Context, name string) error {
	f.record("drop:" + name)
	return f.dropErr
}

func (f *fakeDestination) MergeStaged(context.Context) (warehouse.MergeResult, error) {
	f.record("merge")
	return f.mergeResult, f.mergeErr
}

func (f *fakeDestination) DeleteIdentifiers(_ context.Context, ids []string) (int64, error) {
	f.record("delete")
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deleted = append(f.deleted, ids...)
	return int64(len(ids)), nil
}
