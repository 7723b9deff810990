// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package schema

import (
	"bytes"
	"strings"

	"github.com/goccy/go-json"
)

// Row is a projected document: an ordered tree whose leaves are values and
// whose inner nodes are nested rows. Field order follows insertion order,
// which the Projector keeps equal to schema order.
type Row struct {
	fields []rowField
}

type rowField struct {
	name  string
	value any
	child *Row
}

// NewRow returns an empty row.
func NewRow() *Row {
	return &Row{}
}

// Len returns the number of top-level fields.
func (r *Row) Len() int {
	return len(r.fields)
}

// Set stores v at a dotted path, creating intermediate nodes as needed.
// An existing leaf on the way is replaced by a node.
func (r *Row) Set(path string, v any) {
	head, rest, nested := strings.Cut(path, ".")
	i := r.index(head)
	if !nested {
		if i < 0 {
			r.fields = append(r.fields, rowField{name: head, value: v})
			return
		}
		r.fields[i] = rowField{name: head, value: v}
		return
	}
	if i < 0 {
		r.fields = append(r.fields, rowField{name: head, child: NewRow()})
		i = len(r.fields) - 1
	} else if r.fields[i].child == nil {
		r.fields[i] = rowField{name: head, child: NewRow()}
	}
	r.fields[i].child.Set(rest, v)
}

// Get returns the leaf value at a dotted path.
func (r *Row) Get(path string) (any, bool) {
	head, rest, nested := strings.Cut(path, ".")
	i := r.index(head)
	if i < 0 {
		return nil, false
	}
	f := r.fields[i]
	if !nested {
		if f.child != nil {
			return nil, false
		}
		return f.value, true
	}
	if f.child == nil {
		return nil, false
	}
	return f.child.Get(rest)
}

// Paths returns the dotted paths of every leaf in order.
func (r *Row) Paths() []string {
	var out []string
	for _, f := range r.fields {
		if f.child == nil {
			out = append(out, f.name)
			continue
		}
		for _, p := range f.child.Paths() {
			out = append(out, f.name+"."+p)
		}
	}
	return out
}

// Map converts the row to nested maps.
func (r *Row) Map() map[string]any {
	out := make(map[string]any, len(r.fields))
	for _, f := range r.fields {
		if f.child != nil {
			out[f.name] = f.child.Map()
			continue
		}
		out[f.name] = f.value
	}
	return out
}

// MarshalJSON encodes the row as a JSON object in field order.
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var val []byte
		if f.child != nil {
			val, err = f.child.MarshalJSON()
		} else {
			val, err = json.Marshal(f.value)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Row) index(name string) int {
	for i, f := range r.fields {
		if f.name == name {
			return i
		}
	}
	return -1
}
