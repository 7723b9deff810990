// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/docmirror/internal/config"
)

// StreamCreator is the subset of jetstream.JetStream used to provision the
// notification stream.
type StreamCreator interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// dedupWindow matches the publisher's retry horizon.
const dedupWindow = 2 * time.Minute

// StreamConfig builds the stream definition for cfg. The stream captures
// every subject under the configured prefix.
func StreamConfig(cfg *config.NATSConfig) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Subjects:    []string{cfg.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		Duplicates:  dedupWindow,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		AllowDirect: true,
	}
}

// EnsureStream creates the stream or updates it to the current settings.
// Calling it repeatedly is safe.
func EnsureStream(ctx context.Context, js StreamCreator, cfg *config.NATSConfig) (jetstream.Stream, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream context required")
	}
	sc := StreamConfig(cfg)
	stream, err := js.CreateOrUpdateStream(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", sc.Name, err)
	}
	return stream, nil
}
