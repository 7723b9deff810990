// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package changefeed

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "insert", want: KindInsert},
		{in: "update", want: KindUpdate},
		{in: "replace", want: KindReplace},
		{in: "delete", want: KindDelete},
		{in: "drop", wantErr: true},
		{in: "invalidate", wantErr: true},
		{in: "", wantErr: true},
		{in: "INSERT", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedOperation) {
					t.Fatalf("ParseKind(%q) error = %v, want ErrUnsupportedOperation", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKind(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPosition_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b Position
		want int
	}{
		{"equal", Position{5, 1}, Position{5, 1}, 0},
		{"earlier second", Position{4, 9}, Position{5, 1}, -1},
		{"later second", Position{6, 0}, Position{5, 7}, 1},
		{"same second lower sequence", Position{5, 1}, Position{5, 3}, -1},
		{"same second higher sequence", Position{5, 3}, Position{5, 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("%v.Compare(%v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := tt.a.Less(tt.b); got != (tt.want < 0) {
				t.Errorf("%v.Less(%v) = %v", tt.a, tt.b, got)
			}
		})
	}
}

func TestPosition_Next(t *testing.T) {
	p := Position{Time: 1700000000, Sequence: 4}
	next := p.Next()
	if next.Time != p.Time || next.Sequence != 5 {
		t.Fatalf("Next() = %v, want (1700000000,5)", next)
	}
	if !p.Less(next) {
		t.Error("Next() must sort after the original position")
	}

	last := Position{Time: 7, Sequence: math.MaxUint32}
	if got := last.Next(); got != (Position{Time: 8}) || !last.Less(got) {
		t.Errorf("Next() of %v = %v, want (8,0)", last, got)
	}
}

func TestSliceOpener_SkipsEventsBeforeResume(t *testing.T) {
	opener := &SliceOpener{Events: []Event{
		{Kind: KindInsert, ID: "a", Position: Position{1, 1}},
		{Kind: KindInsert, ID: "b", Position: Position{2, 1}},
		{Kind: KindDelete, ID: "a", Position: Position{2, 2}},
	}}

	feed, err := opener.Open(context.Background(), Position{2, 1})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer feed.Close(context.Background())

	var ids []string
	for {
		ev, ok, err := feed.TryNext(context.Background())
		if err != nil {
			t.Fatalf("TryNext: %v", err)
		}
		if !ok {
			break
		}
		ids = append(ids, ev.ID)
	}
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "a" {
		t.Errorf("drained ids = %v, want [b a]", ids)
	}
	if opener.From != (Position{2, 1}) {
		t.Errorf("From = %v, want (2,1)", opener.From)
	}
}

func TestSliceFeed_CanceledContext(t *testing.T) {
	feed := NewSliceFeed(Event{Kind: KindInsert, ID: "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := feed.TryNext(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("TryNext() error = %v, want context.Canceled", err)
	}
}
