// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package schema

import (
	"strings"

	"github.com/tomtom215/docmirror/internal/changefeed"
)

// Projector filters and reshapes documents to match a schema.
// It is safe for concurrent use; every call builds a fresh Row.
type Projector struct {
	schema         *Schema
	paths          []string
	timeField      string
	incrementField string
}

// NewProjector returns a projector for s that stamps positions into
// timeField and incrementField.
func NewProjector(s *Schema, timeField, incrementField string) *Projector {
	return &Projector{
		schema:         s,
		paths:          s.Paths(),
		timeField:      timeField,
		incrementField: incrementField,
	}
}

// Schema returns the schema the projector was built from.
func (p *Projector) Schema() *Schema {
	return p.schema
}

// TimeField returns the name of the stamped time field.
func (p *Projector) TimeField() string {
	return p.timeField
}

// IncrementField returns the name of the stamped sequence field.
func (p *Projector) IncrementField() string {
	return p.incrementField
}

// Project normalizes doc and copies every schema path present in it.
// Missing and null paths are omitted.
func (p *Projector) Project(doc map[string]any) *Row {
	row := NewRow()
	norm := NormalizeDocument(doc)
	if norm == nil {
		return row
	}
	for _, path := range p.paths {
		if v, ok := lookup(norm, path); ok {
			row.Set(path, v)
		}
	}
	return row
}

// ProjectAt projects doc and stamps it with pos.
func (p *Projector) ProjectAt(doc map[string]any, pos changefeed.Position) *Row {
	row := p.Project(doc)
	p.stamp(row, pos)
	return row
}

// Stamp returns a bare row carrying only the position fields.
func (p *Projector) Stamp(pos changefeed.Position) *Row {
	row := NewRow()
	p.stamp(row, pos)
	return row
}

func (p *Projector) stamp(row *Row, pos changefeed.Position) {
	row.Set(p.timeField, int64(pos.Time))
	row.Set(p.incrementField, int64(pos.Sequence))
}

// lookup walks a dotted path through nested maps.
func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}
