// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

// Package source reads change events from a MongoDB change stream.
//
// MongoSource implements changefeed.Opener. Each Open starts a change
// stream on the configured collection at a cluster time, limited to insert,
// update, replace and delete events and with full documents looked up for
// updates. Feeds poll with TryNext, so a window ends as soon as the stream
// has nothing buffered.
//
// Documents are rendered as relaxed Extended JSON and decoded into
// map[string]any with numbers kept as json.Number. BSON types without a JSON
// form (ObjectId, dates, 64-bit integers outside the relaxed range, binary)
// therefore reach the projector as $-tagged wrappers, which schema.Normalize
// unwraps.
//
// The change stream requires a replica set or sharded cluster.
package source
