// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

// Package testinfra provides container helpers for integration tests.
//
// The helpers use testcontainers-go and are compiled only with the
// integration build tag:
//
//	go test -tags integration ./internal/source/...
//
// # MongoDB
//
// Change streams need a replica set, so StartMongo runs a single-member
// replica set and returns a direct-connection URI:
//
//	func TestChangeStream(t *testing.T) {
//	    mongo := testinfra.StartMongo(t)
//	    src, err := source.NewMongoSource(ctx, &config.MongoDBConfig{URI: mongo.URI, ...})
//	    // ...
//	}
//
// Tests are skipped when Docker is not available.
package testinfra
