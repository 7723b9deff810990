// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

// ErrInvalidSchema is returned when a schema definition cannot be used.
var ErrInvalidSchema = errors.New("invalid schema")

// Field type names with special handling. Scalar type names are matched
// case-insensitively.
const (
	TypeRecord = "RECORD"
	TypeStruct = "STRUCT"

	ModeRepeated = "REPEATED"
)

// Field is one schema field.
type Field struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Mode        string  `json:"mode,omitempty"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

// IsRecord reports whether the field holds nested fields.
func (f Field) IsRecord() bool {
	t := strings.ToUpper(f.Type)
	return t == TypeRecord || t == TypeStruct
}

// IsRepeated reports whether the field is an array.
func (f Field) IsRepeated() bool {
	return strings.EqualFold(f.Mode, ModeRepeated)
}

// Schema is a loaded destination schema with its flattened paths.
type Schema struct {
	fields []Field
	paths  []string
}

// New validates fields and builds a Schema.
func New(fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields", ErrInvalidSchema)
	}
	if err := validateFields(fields, ""); err != nil {
		return nil, err
	}
	s := &Schema{fields: fields}
	s.paths = flatten(fields, "")
	return s, nil
}

// Load reads a schema definition. Both a bare JSON array of fields and an
// object of the form {"fields": [...]} are accepted.
func Load(r io.Reader) (*Schema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	data = bytes.TrimSpace(data)

	var fields []Field
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Fields []Field `json:"fields"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
		fields = wrapped.Fields
	} else if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return New(fields)
}

// LoadFile reads a schema definition from path.
func LoadFile(path string) (*Schema, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("open schema file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Fields returns the top-level fields.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Paths returns the flattened dotted paths in schema order.
func (s *Schema) Paths() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// TopLevel returns the top-level field names in schema order.
func (s *Schema) TopLevel() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Has reports whether name is a top-level field.
func (s *Schema) Has(name string) bool {
	for _, f := range s.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// flatten expands records depth-first. Repeated records are leaves: arrays
// are copied whole rather than walked.
func flatten(fields []Field, prefix string) []string {
	var paths []string
	for _, f := range fields {
		key := f.Name
		if prefix != "" {
			key = prefix + "." + f.Name
		}
		if f.IsRecord() && !f.IsRepeated() {
			paths = append(paths, flatten(f.Fields, key)...)
			continue
		}
		paths = append(paths, key)
	}
	return paths
}

func validateFields(fields []Field, prefix string) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		where := f.Name
		if prefix != "" {
			where = prefix + "." + f.Name
		}
		switch {
		case f.Name == "":
			return fmt.Errorf("%w: empty field name under %q", ErrInvalidSchema, prefix)
		case strings.Contains(f.Name, "."):
			return fmt.Errorf("%w: field name %q contains '.'", ErrInvalidSchema, where)
		case f.Type == "":
			return fmt.Errorf("%w: field %q has no type", ErrInvalidSchema, where)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, where)
		}
		seen[f.Name] = struct{}{}

		if f.IsRecord() {
			if len(f.Fields) == 0 {
				return fmt.Errorf("%w: record %q has no fields", ErrInvalidSchema, where)
			}
			if err := validateFields(f.Fields, where); err != nil {
				return err
			}
		}
	}
	return nil
}
