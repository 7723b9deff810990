// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package changefeed

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedOperation is returned for an event kind outside
// {insert, update, replace, delete}. It indicates an upstream filter
// misconfiguration and is never retried.
var ErrUnsupportedOperation = errors.New("unsupported change operation")

// Kind is the mutation kind of a change event.
type Kind string

const (
	KindInsert  Kind = "insert"
	KindUpdate  Kind = "update"
	KindReplace Kind = "replace"
	KindDelete  Kind = "delete"
)

// Kinds lists every supported kind in the order used by source filters.
var Kinds = []Kind{KindInsert, KindDelete, KindReplace, KindUpdate}

// ParseKind maps a source operation type onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindInsert, KindUpdate, KindReplace, KindDelete:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOperation, s)
	}
}

// Valid reports whether k is one of the four supported kinds.
func (k Kind) Valid() bool {
	_, err := ParseKind(string(k))
	return err == nil
}

func (k Kind) String() string {
	return string(k)
}

// Position is a recency position: epoch seconds plus a sequence number that
// increases within the second.
type Position struct {
	Time     uint32 `json:"time"`
	Sequence uint32 `json:"sequence"`
}

// Compare returns -1, 0 or +1 ordering p against o by (Time, Sequence).
func (p Position) Compare(o Position) int {
	switch {
	case p.Time < o.Time:
		return -1
	case p.Time > o.Time:
		return 1
	case p.Sequence < o.Sequence:
		return -1
	case p.Sequence > o.Sequence:
		return 1
	default:
		return 0
	}
}

// Less reports whether p sorts strictly before o.
func (p Position) Less(o Position) bool {
	return p.Compare(o) < 0
}

// Next returns the position immediately after p within the same second.
// Resuming from Next never re-emits the event at p.
func (p Position) Next() Position {
	if p.Sequence == math.MaxUint32 {
		return Position{Time: p.Time + 1}
	}
	return Position{Time: p.Time, Sequence: p.Sequence + 1}
}

// IsZero reports whether p is the zero position.
func (p Position) IsZero() bool {
	return p.Time == 0 && p.Sequence == 0
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Time, p.Sequence)
}

// Event is one mutation notification. Document holds the post-image for
// non-delete kinds; it is nil for deletes and may be nil for an update whose
// document vanished before the source could look it up.
type Event struct {
	Kind     Kind
	ID       string
	Position Position
	Document map[string]any
}

// Feed is an open change feed positioned at a resume point.
type Feed interface {
	// TryNext returns the next event if one is available right now.
	// ok is false once the feed is temporarily caught up.
	TryNext(ctx context.Context) (ev Event, ok bool, err error)

	// Close releases the feed cursor.
	Close(ctx context.Context) error
}

// Opener opens a Feed that starts at (and includes) from.
type Opener interface {
	Open(ctx context.Context, from Position) (Feed, error)
}
