// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// DefaultMongoImage is the MongoDB image used for change stream tests.
const DefaultMongoImage = "mongo:7.0"

// MongoContainer is a single-node replica set, the smallest deployment that
// supports change streams.
type MongoContainer struct {
	*mongodb.MongoDBContainer
	URI string
}

// NewMongoContainer starts MongoDB with a one-member replica set. The
// returned URI connects directly to that member.
func NewMongoContainer(ctx context.Context, image string) (*MongoContainer, error) {
	if image == "" {
		image = DefaultMongoImage
	}
	ctr, err := mongodb.Run(ctx, image, mongodb.WithReplicaSet("rs0"))
	if err != nil {
		return nil, fmt.Errorf("failed to start MongoDB container: %w", err)
	}

	raw, err := ctr.ConnectionString(ctx)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("failed to parse connection string %q: %w", raw, err)
	}
	q := u.Query()
	q.Set("directConnection", "true")
	u.RawQuery = q.Encode()
	if u.Path == "" {
		u.Path = "/"
	}

	return &MongoContainer{MongoDBContainer: ctr, URI: u.String()}, nil
}

// StartMongo starts a container for t and terminates it on cleanup. The
// test is skipped when Docker is unavailable.
func StartMongo(t *testing.T) *MongoContainer {
	t.Helper()
	SkipIfNoDocker(t)

	ctx := context.Background()
	m, err := NewMongoContainer(ctx, "")
	if err != nil {
		t.Fatalf("NewMongoContainer: %v", err)
	}
	t.Cleanup(func() { CleanupContainer(t, context.Background(), m.MongoDBContainer) })
	return m
}
