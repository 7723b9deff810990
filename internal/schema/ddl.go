// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package schema

import (
	"fmt"
	"strings"
)

// Column is a top-level DuckDB column derived from the schema.
type Column struct {
	Name string
	Type string
}

// scalarTypes maps schema type names to DuckDB types.
var scalarTypes = map[string]string{
	"STRING":     "VARCHAR",
	"INTEGER":    "BIGINT",
	"INT64":      "BIGINT",
	"FLOAT":      "DOUBLE",
	"FLOAT64":    "DOUBLE",
	"NUMERIC":    "DECIMAL(38,9)",
	"BIGNUMERIC": "DECIMAL(38,9)",
	"BOOLEAN":    "BOOLEAN",
	"BOOL":       "BOOLEAN",
	"TIMESTAMP":  "TIMESTAMPTZ",
	"DATETIME":   "TIMESTAMP",
	"DATE":       "DATE",
	"TIME":       "TIME",
	"BYTES":      "BLOB",
	"JSON":       "JSON",
	"GEOGRAPHY":  "VARCHAR",
}

// ColumnType returns the DuckDB type of the field.
func (f Field) ColumnType() (string, error) {
	var base string
	if f.IsRecord() {
		members := make([]string, 0, len(f.Fields))
		for _, child := range f.Fields {
			t, err := child.ColumnType()
			if err != nil {
				return "", err
			}
			members = append(members, quoteIdent(child.Name)+" "+t)
		}
		base = "STRUCT(" + strings.Join(members, ", ") + ")"
	} else {
		t, ok := scalarTypes[strings.ToUpper(f.Type)]
		if !ok {
			return "", fmt.Errorf("%w: field %q has unsupported type %q", ErrInvalidSchema, f.Name, f.Type)
		}
		base = t
	}
	if f.IsRepeated() {
		return base + "[]", nil
	}
	return base, nil
}

// Columns returns the top-level columns. Each stamp field that the schema
// does not declare is appended as BIGINT.
func (s *Schema) Columns(stampFields ...string) ([]Column, error) {
	cols := make([]Column, 0, len(s.fields)+len(stampFields))
	for _, f := range s.fields {
		t, err := f.ColumnType()
		if err != nil {
			return nil, err
		}
		cols = append(cols, Column{Name: f.Name, Type: t})
	}
	for _, name := range stampFields {
		if !s.Has(name) {
			cols = append(cols, Column{Name: name, Type: "BIGINT"})
		}
	}
	return cols, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
