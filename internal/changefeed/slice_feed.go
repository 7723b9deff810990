// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package changefeed

import (
	"context"
	"sync"
)

// SliceFeed replays a fixed list of events. It backs dry runs and tests.
type SliceFeed struct {
	mu     sync.Mutex
	events []Event
	next   int
	closed bool
}

// NewSliceFeed returns a feed that yields events in the given order.
func NewSliceFeed(events ...Event) *SliceFeed {
	return &SliceFeed{events: events}
}

// TryNext implements Feed.
func (f *SliceFeed) TryNext(ctx context.Context) (Event, bool, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.next >= len(f.events) {
		return Event{}, false, nil
	}
	ev := f.events[f.next]
	f.next++
	return ev, true, nil
}

// Close implements Feed.
func (f *SliceFeed) Close(context.Context) error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close has been called.
func (f *SliceFeed) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// SliceOpener opens SliceFeeds over a shared event list, skipping events
// before the requested position.
type SliceOpener struct {
	Events []Event

	// From records the position passed to the most recent Open.
	From Position
}

// Open implements Opener.
func (o *SliceOpener) Open(_ context.Context, from Position) (Feed, error) {
	o.From = from
	var events []Event
	for _, ev := range o.Events {
		if !ev.Position.Less(from) {
			events = append(events, ev)
		}
	}
	return NewSliceFeed(events...), nil
}
