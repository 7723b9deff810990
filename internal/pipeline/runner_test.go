// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/docmirror/internal/changefeed"
	"github.com/tomtom215/docmirror/internal/config"
	"github.com/tomtom215/docmirror/internal/notify"
	"github.com/tomtom215/docmirror/internal/reconcile"
	"github.com/tomtom215/docmirror/internal/schema"
	"github.com/tomtom215/docmirror/internal/spool"
	"github.com/tomtom215/docmirror/internal/warehouse"
)

// duckdbSemaphore serializes tests that open DuckDB.
var duckdbSemaphore = make(chan struct{}, 1)

const testSchema = `[
  {"name": "_id", "type": "STRING"},
  {"name": "status", "type": "STRING"}
]`

func newProjector(t *testing.T) *schema.Projector {
	t.Helper()
	s, err := schema.Load(strings.NewReader(testSchema))
	if err != nil {
		t.Fatalf("schema.Load: %v", err)
	}
	return schema.NewProjector(s, "time", "increment")
}

func openWarehouse(t *testing.T, p *schema.Projector, rows ...any) *warehouse.Warehouse {
	t.Helper()
	duckdbSemaphore <- struct{}{}
	t.Cleanup(func() { <-duckdbSemaphore })

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
	t.Cleanup(func() { _ = w.Close() })

	ctx := context.Background()
	if err := w.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if len(rows) > 0 {
		path := filepath.Join(t.TempDir(), "seed.ndjson")
		if err := spool.WriteRows(path, rows...); err != nil {
			t.Fatalf("WriteRows: %v", err)
		}
		if _, err := w.LoadNDJSON(ctx, w.Table(), path); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return w
}

func pos(t, i uint32) changefeed.Position {
	return changefeed.Position{Time: t, Sequence: i}
}

func doc(id, status string) map[string]any {
	return map[string]any{"_id": id, "status": status}
}

// recordingNotifier keeps published events and optionally fails.
type recordingNotifier struct {
	mu     sync.Mutex
	events []*notify.BatchApplied
	err    error
}

func (n *recordingNotifier) PublishBatch(_ context.Context, e *notify.BatchApplied) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, e)
	return nil
}

// failingOpener fails every Open.
type failingOpener struct{ err error }

func (o failingOpener) Open(context.Context, changefeed.Position) (changefeed.Feed, error) {
	return nil, o.err
}

func TestNew_Validation(t *testing.T) {
	p := newProjector(t)
	opener := &changefeed.SliceOpener{}
	tests := []struct {
		name string
		opts Options
	}{
		{"no opener", Options{Projector: p, Mode: reconcile.ModeAppend}},
		{"no destination", Options{Opener: opener, Projector: p, Mode: reconcile.ModeAppend}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRunPass_AppliesAndAnnounces(t *testing.T) {
	p := newProjector(t)
	w := openWarehouse(t, p, map[string]any{"_id": "a", "status": "new", "time": 1, "increment": 1})

	opener := &changefeed.SliceOpener{Events: []changefeed.Event{
		{Kind: changefeed.KindInsert, ID: "b", Position: pos(2, 1), Document: doc("b", "new")},
		{Kind: changefeed.KindUpdate, ID: "a", Position: pos(2, 2), Document: doc("a", "paid")},
	}}
	notifier := &recordingNotifier{}
	workDir := t.TempDir()
	runner, err := New(Options{
		Opener:      opener,
		Destination: w,
		Projector:   p,
		Mode:        reconcile.ModeAppend,
		Notifier:    notifier,
		WorkDir:     workDir,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	report, err := runner.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if opener.From != pos(1, 2) {
		t.Errorf("feed opened at %v, want (1,2)", opener.From)
	}
	if report.Events != 2 || report.Applied.Inserted != 2 || report.Position != pos(2, 2) {
		t.Errorf("report = %+v", report)
	}
	if !report.Succeeded() || !report.Notified || report.RunID == "" {
		t.Errorf("report = %+v", report)
	}

	if len(notifier.events) != 1 {
		t.Fatalf("published %d events, want 1", len(notifier.events))
	}
	ev := notifier.events[0]
	if ev.RunID != report.RunID || ev.From != pos(1, 2) || ev.To != pos(2, 2) || ev.Inserted != 2 {
		t.Errorf("event = %+v", ev)
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("spool left behind: %d entries", len(entries))
	}

	last, ok := runner.LastReport()
	if !ok || last.RunID != report.RunID {
		t.Errorf("LastReport = %+v, %v", last, ok)
	}

	wm, err := runner.Watermark(context.Background())
	if err != nil {
		t.Fatalf("Watermark: %v", err)
	}
	if wm.Position != pos(2, 2) || wm.LatestID != "a" {
		t.Errorf("watermark = %+v", wm)
	}
}

func TestRunPass_EmptyWindowSkipsNotify(t *testing.T) {
	p := newProjector(t)
	w := openWarehouse(t, p, map[string]any{"_id": "a", "status": "new", "time": 1, "increment": 1})
	notifier := &recordingNotifier{}
	runner, err := New(Options{
		Opener:      &changefeed.SliceOpener{},
		Destination: w,
		Projector:   p,
		Mode:        reconcile.ModeMerge,
		Notifier:    notifier,
		WorkDir:     t.TempDir(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	report, err := runner.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if report.HasPosition || report.Notified || len(notifier.events) != 0 {
		t.Errorf("report = %+v, events = %d", report, len(notifier.events))
	}
	if !report.Applied.ViewCreated {
		t.Error("expected the latest view to be created")
	}
}

func TestRunPass_NotifyFailureDoesNotFailPass(t *testing.T) {
	p := newProjector(t)
	w := openWarehouse(t, p, map[string]any{"_id": "a", "status": "new", "time": 1, "increment": 1})
	runner, err := New(Options{
		Opener: &changefeed.SliceOpener{Events: []changefeed.Event{
			{Kind: changefeed.KindInsert, ID: "b", Position: pos(2, 1), Document: doc("b", "new")},
		}},
		Destination: w,
		Projector:   p,
		Mode:        reconcile.ModeAppend,
		Notifier:    &recordingNotifier{err: errors.New("nats: timeout")},
		WorkDir:     t.TempDir(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	report, err := runner.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if report.Notified {
		t.Error("Notified should be false after a publish failure")
	}
	if report.Applied.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", report.Applied.Inserted)
	}
}

func TestRunPass_Failures(t *testing.T) {
	t.Run("empty destination", func(t *testing.T) {
		p := newProjector(t)
		w := openWarehouse(t, p)
		runner, err := New(Options{Opener: &changefeed.SliceOpener{}, Destination: w, Projector: p, Mode: reconcile.ModeAppend})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		report, err := runner.RunPass(context.Background())
		if !errors.Is(err, reconcile.ErrWatermarkUnavailable) {
			t.Fatalf("err = %v, want ErrWatermarkUnavailable", err)
		}
		if report.Succeeded() {
			t.Error("report should record the failure")
		}
		last, ok := runner.LastReport()
		if !ok || last.Error == "" {
			t.Errorf("LastReport = %+v, %v", last, ok)
		}
	})

	t.Run("open fails", func(t *testing.T) {
		p := newProjector(t)
		w := openWarehouse(t, p, map[string]any{"_id": "a", "time": 1, "increment": 1})
		boom := errors.New("no replica set")
		runner, err := New(Options{Opener: failingOpener{err: boom}, Destination: w, Projector: p, Mode: reconcile.ModeAppend})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if _, err := runner.RunPass(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("err = %v, want %v", err, boom)
		}
	})

	t.Run("unsupported operation", func(t *testing.T) {
		p := newProjector(t)
		w := openWarehouse(t, p, map[string]any{"_id": "a", "time": 1, "increment": 1})
		runner, err := New(Options{
			Opener: &changefeed.SliceOpener{Events: []changefeed.Event{
				{Kind: changefeed.Kind("drop"), Position: pos(2, 1)},
			}},
			Destination: w,
			Projector:   p,
			Mode:        reconcile.ModeAppend,
			WorkDir:     t.TempDir(),
		})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if _, err := runner.RunPass(context.Background()); !errors.Is(err, changefeed.ErrUnsupportedOperation) {
			t.Fatalf("err = %v, want ErrUnsupportedOperation", err)
		}
	})
}
