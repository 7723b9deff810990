// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package reconcile

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/docmirror/internal/changefeed"
)

// Mode selects how updates and replaces reach the destination.
type Mode string

const (
	// ModeAppend appends every change as a new row.
	ModeAppend Mode = "append"
	// ModeMerge overwrites existing rows in place for updates and replaces.
	ModeMerge Mode = "merge"
)

// ParseMode validates a configured mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeAppend, ModeMerge:
		return m, nil
	default:
		return "", fmt.Errorf("unknown input mode %q", s)
	}
}

// Target is the set an event is routed to.
type Target string

const (
	TargetInsert        Target = "insert"
	TargetUpdate        Target = "update"
	TargetPendingDelete Target = "delete"
	TargetSkipped       Target = "skipped"
)

// Decision records how one event was classified. Decisions are returned for
// the caller to log; the classifier itself never logs.
type Decision struct {
	Level    zerolog.Level
	Kind     changefeed.Kind
	ID       string
	Position changefeed.Position
	Target   Target

	// CancelledDelete is set when the event removed a pending delete of
	// the same identifier.
	CancelledDelete bool

	// Fields is the number of top-level fields in the projected row.
	Fields int

	Reason string
}

// Batch is the result of draining one window.
type Batch struct {
	Mode Mode

	// Dir is the spool run directory holding the files below.
	Dir        string
	InsertPath string
	UpdatePath string
	DeletePath string

	Inserts int
	Updates int

	// Deletes is what was written to DeletePath. Apply reads the file.
	Deletes []string

	// Position is the position of the last event read. HasPosition is
	// false for an empty window.
	Position    changefeed.Position
	HasPosition bool

	Events    int
	Skipped   int
	Decisions []Decision
}

// Empty reports whether the batch carries no writes.
func (b *Batch) Empty() bool {
	return b.Inserts == 0 && b.Updates == 0 && len(b.Deletes) == 0
}
