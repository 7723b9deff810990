// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package source

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/tomtom215/docmirror/internal/changefeed"
	"github.com/tomtom215/docmirror/internal/schema"
)

// changeEvent is the subset of a change stream event the mirror reads.
type changeEvent struct {
	OperationType string         `bson:"operationType"`
	ClusterTime   bson.Timestamp `bson:"clusterTime"`
	DocumentKey   bson.RawValue  `bson:"documentKey"`
	FullDocument  bson.RawValue  `bson:"fullDocument"`
}

// DecodeEvent converts one raw change stream event.
func DecodeEvent(raw bson.Raw) (changefeed.Event, error) {
	var ce changeEvent
	if err := bson.Unmarshal(raw, &ce); err != nil {
		return changefeed.Event{}, fmt.Errorf("failed to decode change event: %w", err)
	}

	kind, err := changefeed.ParseKind(ce.OperationType)
	if err != nil {
		return changefeed.Event{}, err
	}
	ev := changefeed.Event{
		Kind:     kind,
		Position: changefeed.Position{Time: ce.ClusterTime.T, Sequence: ce.ClusterTime.I},
	}

	key, err := rawDocument(ce.DocumentKey)
	if err != nil {
		return changefeed.Event{}, fmt.Errorf("documentKey: %w", err)
	}
	id, ok := key["_id"]
	if !ok {
		return changefeed.Event{}, fmt.Errorf("change event at %s has no documentKey._id", ev.Position)
	}
	ev.ID = IdentifierString(id)

	if kind != changefeed.KindDelete {
		if ev.Document, err = rawDocument(ce.FullDocument); err != nil {
			return changefeed.Event{}, fmt.Errorf("fullDocument: %w", err)
		}
	}
	return ev, nil
}

// rawDocument converts an embedded document value. A missing or null value
// yields nil.
func rawDocument(v bson.RawValue) (map[string]any, error) {
	if v.Type == 0 || v.Type == bson.TypeNull || v.Type == bson.TypeUndefined {
		return nil, nil
	}
	if v.Type != bson.TypeEmbeddedDocument {
		return nil, fmt.Errorf("expected a document, got BSON type %s", v.Type)
	}
	return DocumentFromBSON(v.Document())
}

// DocumentFromBSON renders doc as relaxed Extended JSON and decodes it into
// a generic map, keeping numbers as json.Number.
func DocumentFromBSON(doc bson.Raw) (map[string]any, error) {
	ext, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to render extended JSON: %w", err)
	}
	return DecodeJSONDocument(ext)
}

// DecodeJSONDocument decodes one JSON object with numbers kept as
// json.Number.
func DecodeJSONDocument(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return m, nil
}

// IdentifierString renders a document identifier as text after unwrapping
// Extended JSON wrappers: an ObjectId becomes its hex form.
func IdentifierString(v any) string {
	switch n := schema.Normalize(v).(type) {
	case string:
		return n
	case json.Number:
		return n.String()
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case nil:
		return ""
	default:
		b, err := json.Marshal(n)
		if err != nil {
			return fmt.Sprint(n)
		}
		return string(b)
	}
}
