// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

// Package changefeed defines the vocabulary shared by change-feed sources and
// the reconciliation engine: recency positions, change events and the feed
// interface that supports bounded, non-blocking draining.
//
// A Position is the (time, sequence) pair the source assigns to every
// mutation. Positions are totally ordered and serve both as the resumption
// cursor and as the tie-breaker for "most recent version of a row".
//
// A Feed is drained with TryNext until it reports that no further event is
// currently available. Sources must not block waiting for new events:
//
//	feed, err := opener.Open(ctx, watermark.ResumeFrom)
//	if err != nil {
//	    return err
//	}
//	defer feed.Close(ctx)
//
//	for {
//	    ev, ok, err := feed.TryNext(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    if !ok {
//	        break // caught up
//	    }
//	    handle(ev)
//	}
package changefeed
