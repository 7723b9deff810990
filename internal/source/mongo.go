// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package source

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/tomtom215/docmirror/internal/changefeed"
	"github.com/tomtom215/docmirror/internal/config"
	"github.com/tomtom215/docmirror/internal/logging"
)

// MongoSource opens change streams on one collection.
type MongoSource struct {
	client *mongo.Client
	coll   *mongo.Collection
	cfg    *config.MongoDBConfig
}

// NewMongoSource connects to MongoDB and verifies the connection.
func NewMongoSource(ctx context.Context, cfg *config.MongoDBConfig) (*MongoSource, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout).
		SetAppName("docmirror")

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logging.Info().
		Str("db", cfg.DB).
		Str("collection", cfg.Collection).
		Msg("Connected to MongoDB")

	return &MongoSource{
		client: client,
		coll:   client.Database(cfg.DB).Collection(cfg.Collection),
		cfg:    cfg,
	}, nil
}

// Pipeline returns the change stream filter for db.coll.
func Pipeline(db, coll string) mongo.Pipeline {
	kinds := make(bson.A, len(changefeed.Kinds))
	for i, k := range changefeed.Kinds {
		kinds[i] = string(k)
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: kinds}}},
			{Key: "ns.db", Value: db},
			{Key: "ns.coll", Value: coll},
		}}},
	}
}

// Open implements changefeed.Opener. The stream starts at from inclusive.
func (s *MongoSource) Open(ctx context.Context, from changefeed.Position) (changefeed.Feed, error) {
	opts := options.ChangeStream().
		SetFullDocument(options.UpdateLookup).
		SetStartAtOperationTime(&bson.Timestamp{T: from.Time, I: from.Sequence})

	cs, err := s.coll.Watch(ctx, Pipeline(s.cfg.DB, s.cfg.Collection), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open change stream at %s: %w", from, err)
	}
	logging.Ctx(ctx).Debug().Str("from", from.String()).Msg("Opened change stream")
	return &mongoFeed{cs: cs}, nil
}

// Ping checks that the primary is reachable.
func (s *MongoSource) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoSource) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoFeed struct {
	cs *mongo.ChangeStream
}

// TryNext implements changefeed.Feed.
func (f *mongoFeed) TryNext(ctx context.Context) (changefeed.Event, bool, error) {
	if !f.cs.TryNext(ctx) {
		if err := f.cs.Err(); err != nil {
			return changefeed.Event{}, false, fmt.Errorf("change stream: %w", err)
		}
		return changefeed.Event{}, false, nil
	}
	ev, err := DecodeEvent(f.cs.Current)
	if err != nil {
		return changefeed.Event{}, false, err
	}
	return ev, true, nil
}

// Close implements changefeed.Feed.
func (f *mongoFeed) Close(ctx context.Context) error {
	return f.cs.Close(ctx)
}
