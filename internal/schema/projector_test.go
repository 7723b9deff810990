// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package schema

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/docmirror/internal/changefeed"
)

func newOrdersProjector(t *testing.T) *Projector {
	t.Helper()
	return NewProjector(mustLoad(t, ordersSchema), "time", "increment")
}

func TestProject_FiltersToSchemaPaths(t *testing.T) {
	p := newOrdersProjector(t)

	doc := map[string]any{
		"_id":    map[string]any{"$oid": "65a1f0c2e4b0a1b2c3d4e5f6"},
		"status": "paid",
		"total":  map[string]any{"$numberLong": "42"},
		"secret": "must not leak",
		"customer": map[string]any{
			"name":  "Ada",
			"email": "not in schema",
			"address": map[string]any{
				"city": "Oslo",
			},
		},
		"items": []any{
			map[string]any{"sku": "A-1", "qty": map[string]any{"$numberInt": "2"}},
		},
	}

	row := p.Project(doc)
	want := map[string]any{
		"_id":    "65a1f0c2e4b0a1b2c3d4e5f6",
		"status": "paid",
		"total":  int64(42),
		"customer": map[string]any{
			"name":    "Ada",
			"address": map[string]any{"city": "Oslo"},
		},
		"items": []any{
			map[string]any{"sku": "A-1", "qty": int64(2)},
		},
	}
	if got := row.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("Project() = %#v\nwant %#v", got, want)
	}
}

func TestProject_WrapperUnwrapsToScalar(t *testing.T) {
	p := NewProjector(mustLoad(t, `[{"name":"n","type":"INTEGER"}]`), "time", "increment")
	row := p.Project(map[string]any{"n": map[string]any{"$numberLong": "42"}})

	got, ok := row.Get("n")
	if !ok {
		t.Fatal("n missing from projected row")
	}
	if got != int64(42) {
		t.Errorf("n = %#v, want int64(42)", got)
	}
}

func TestProject_OmitsMissingAndNullPaths(t *testing.T) {
	p := newOrdersProjector(t)
	row := p.Project(map[string]any{
		"_id":      "a",
		"status":   nil,
		"customer": "not an object",
	})

	if got := row.Paths(); !reflect.DeepEqual(got, []string{"_id"}) {
		t.Errorf("Paths() = %v, want [_id]", got)
	}
}

func TestProject_NilDocument(t *testing.T) {
	p := newOrdersProjector(t)
	if row := p.Project(nil); row.Len() != 0 {
		t.Errorf("Project(nil) has %d fields, want 0", row.Len())
	}
}

func TestProjectAt_StampsPosition(t *testing.T) {
	p := newOrdersProjector(t)
	row := p.ProjectAt(map[string]any{"_id": "a", "time": "bogus"}, changefeed.Position{Time: 10, Sequence: 2})

	if v, _ := row.Get("time"); v != int64(10) {
		t.Errorf("time = %#v, want 10", v)
	}
	if v, _ := row.Get("increment"); v != int64(2) {
		t.Errorf("increment = %#v, want 2", v)
	}
}

func TestStamp_BareRow(t *testing.T) {
	p := newOrdersProjector(t)
	data, err := json.Marshal(p.Stamp(changefeed.Position{Time: 7, Sequence: 3}))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"time":7,"increment":3}` {
		t.Errorf("Stamp() JSON = %s", data)
	}
}

// Projected keys never exceed the schema paths plus the stamp fields,
// whatever the input looks like.
func TestProject_SubsetInvariant(t *testing.T) {
	p := newOrdersProjector(t)
	allowed := make(map[string]bool)
	for _, path := range p.Schema().Paths() {
		allowed[path] = true
	}
	allowed["time"] = true
	allowed["increment"] = true

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		doc := randomDocument(rng, 3)
		row := p.ProjectAt(doc, changefeed.Position{Time: uint32(i), Sequence: 1})
		for _, path := range row.Paths() {
			if !allowed[path] {
				t.Fatalf("iteration %d: projected path %q is not in the schema (doc=%v)", i, path, doc)
			}
		}
	}
}

var randomKeys = []string{"_id", "status", "total", "customer", "name", "address", "city", "zip", "items", "extra", "$numberLong"}

func randomDocument(rng *rand.Rand, depth int) map[string]any {
	doc := make(map[string]any)
	n := rng.Intn(6)
	for i := 0; i < n; i++ {
		key := randomKeys[rng.Intn(len(randomKeys))]
		switch {
		case depth > 0 && rng.Intn(3) == 0:
			doc[key] = randomDocument(rng, depth-1)
		case rng.Intn(4) == 0:
			doc[key] = []any{rng.Intn(10)}
		default:
			doc[key] = fmt.Sprintf("v%d", rng.Intn(100))
		}
	}
	return doc
}
