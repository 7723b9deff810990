// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package schema

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// WrapperSentinel marks the single key of a type-tagged wrapper object.
const WrapperSentinel = '$'

// ValueKind classifies a raw document value before projection.
type ValueKind uint8

const (
	// KindScalar is any non-container value, including nil.
	KindScalar ValueKind = iota
	// KindWrapped is a single-key object whose key starts with WrapperSentinel.
	KindWrapped
	// KindNested is any other object.
	KindNested
	// KindList is an array.
	KindList
)

func (k ValueKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindWrapped:
		return "wrapped"
	case KindNested:
		return "nested"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is the tagged-variant view of a raw value.
type Value struct {
	Kind ValueKind

	// Tag is the wrapper key (e.g. "$numberLong") when Kind is KindWrapped.
	Tag string

	// Inner is the scalar itself, the wrapped inner value, the object or the
	// array, depending on Kind.
	Inner any
}

// Classify decodes raw into its tagged variant without modifying it.
func Classify(raw any) Value {
	switch v := raw.(type) {
	case map[string]any:
		if len(v) == 1 {
			for k, inner := range v {
				if k != "" && k[0] == WrapperSentinel {
					return Value{Kind: KindWrapped, Tag: k, Inner: inner}
				}
			}
		}
		return Value{Kind: KindNested, Inner: v}
	case []any:
		return Value{Kind: KindList, Inner: v}
	default:
		return Value{Kind: KindScalar, Inner: v}
	}
}

// Normalize returns a deep copy of raw with every wrapper replaced by its
// bare value. Input maps and slices are never modified.
func Normalize(raw any) any {
	v := Classify(raw)
	switch v.Kind {
	case KindWrapped:
		return unwrap(v.Tag, v.Inner)
	case KindNested:
		src := v.Inner.(map[string]any)
		out := make(map[string]any, len(src))
		for k, child := range src {
			out[k] = Normalize(child)
		}
		return out
	case KindList:
		src := v.Inner.([]any)
		out := make([]any, len(src))
		for i, child := range src {
			out[i] = Normalize(child)
		}
		return out
	default:
		return v.Inner
	}
}

// NormalizeDocument normalizes a whole document.
func NormalizeDocument(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out, _ := Normalize(doc).(map[string]any)
	if out == nil {
		// A document that is itself a single wrapper is not a document.
		return map[string]any{}
	}
	return out
}

// unwrap converts the numeric Extended JSON tags to Go numbers and returns
// the normalized inner value for every other tag.
func unwrap(tag string, inner any) any {
	switch tag {
	case "$numberLong", "$numberInt":
		if n, ok := parseInt(inner); ok {
			return n
		}
	case "$numberDouble":
		// NaN and the infinities stay textual: they have no JSON number form.
		if f, ok := parseFloat(inner); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return Normalize(inner)
}

func parseInt(v any) (int64, bool) {
	switch n := v.(type) {
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		return int64(n), float64(int64(n)) == n
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

func parseFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	}
	return 0, false
}
