// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

/*
Package reconcile turns one window of change events into destination writes.

A pass has four stages:

 1. WatermarkStore.CurrentWatermark recovers the resume position from the
    newest destination row. The destination must already hold at least one
    stamped row.
 2. Classifier.DrainWindow reads the feed until it is caught up and routes
    every event into the insert set, the update set or the pending deletes,
    written to a spool directory.
 3. Reconciler.Apply ensures the latest-state view, appends the insert set,
    merges the update set (merge mode only) and deletes the pending
    identifiers.
 4. The caller logs the batch's Decisions and publishes the result.

# Routing

An insert, update or replace that follows a delete of the same identifier
in the same window cancels that delete. Otherwise inserts always append,
and updates and replaces append in append mode and merge in merge mode.
The batch position is the position of the last event read, whatever its
kind. Events are never reordered by position.

# Safeguard

Deleting the identifier of the newest destination row would move the
watermark backwards or lose it entirely. When a batch carries only deletes
and one of them is that identifier, a bare row holding just the batch's
final position is appended before the delete. The latest-state view
ignores rows without an identifier.

# Errors

All failures are fatal to the pass:
  - ErrWatermarkUnavailable: empty destination or NULL stamps
  - changefeed.ErrUnsupportedOperation: unknown event kind
  - ErrMergeTargetMissing: an update-set identifier has no destination row
  - ErrDestinationJob: any load, merge, delete or DDL failure

Re-running a pass is safe: appends are keyed by position and deletes are
set membership.
*/
package reconcile
