// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

/*
Package pipeline runs one bounded mirroring pass.

A pass recovers the watermark from the warehouse, opens the change feed right
after it, drains the currently available events into a spool, applies the
batch and announces it. Nothing is kept between passes except the warehouse
itself, so any pass can be repeated after a failure.

	runner, err := pipeline.New(pipeline.Options{
	    Opener:      source,
	    Destination: wh,
	    Projector:   projector,
	    Mode:        reconcile.ModeAppend,
	})
	report, err := runner.RunPass(ctx)
*/
package pipeline
