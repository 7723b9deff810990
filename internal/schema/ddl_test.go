// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package schema

import (
	"errors"
	"reflect"
	"testing"
)

func TestColumns(t *testing.T) {
	s := mustLoad(t, ordersSchema)
	cols, err := s.Columns("time", "increment")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}

	want := []Column{
		{Name: "_id", Type: "VARCHAR"},
		{Name: "status", Type: "VARCHAR"},
		{Name: "total", Type: "BIGINT"},
		{Name: "customer", Type: `STRUCT("name" VARCHAR, "address" STRUCT("city" VARCHAR, "zip" VARCHAR))`},
		{Name: "items", Type: `STRUCT("sku" VARCHAR, "qty" BIGINT)[]`},
		{Name: "time", Type: "BIGINT"},
		{Name: "increment", Type: "BIGINT"},
	}
	if !reflect.DeepEqual(cols, want) {
		t.Errorf("Columns() = %#v\nwant %#v", cols, want)
	}
}

func TestColumns_AddsUndeclaredStampFields(t *testing.T) {
	s := mustLoad(t, `[{"name":"_id","type":"STRING"},{"name":"tags","type":"string","mode":"REPEATED"}]`)
	cols, err := s.Columns("ts", "inc")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	want := []Column{
		{Name: "_id", Type: "VARCHAR"},
		{Name: "tags", Type: "VARCHAR[]"},
		{Name: "ts", Type: "BIGINT"},
		{Name: "inc", Type: "BIGINT"},
	}
	if !reflect.DeepEqual(cols, want) {
		t.Errorf("Columns() = %#v\nwant %#v", cols, want)
	}
}

func TestColumns_UnsupportedType(t *testing.T) {
	s := mustLoad(t, `[{"name":"x","type":"INTERVAL"}]`)
	if _, err := s.Columns(); !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("Columns() error = %v, want ErrInvalidSchema", err)
	}
}
