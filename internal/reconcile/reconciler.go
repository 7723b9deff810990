// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package reconcile

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/tomtom215/docmirror/internal/logging"
	"github.com/tomtom215/docmirror/internal/metrics"
	"github.com/tomtom215/docmirror/internal/schema"
	"github.com/tomtom215/docmirror/internal/spool"
	"github.com/tomtom215/docmirror/internal/warehouse"
)

// SafeguardFile is the spool file holding the placeholder row.
const SafeguardFile = "safeguard.ndjson"

// Destination is the warehouse surface the reconciler writes through.
type Destination interface {
	ViewCatalog
	Table() string
	StagingTable() string
	LoadNDJSON(ctx context.Context, table, path string) (int64, error)
	CreateStaging(ctx context.Context) error
	DropTable(ctx context.Context, name string) error
	MergeStaged(ctx context.Context) (warehouse.MergeResult, error)
	DeleteIdentifiers(ctx context.Context, ids []string) (int64, error)
}

// ApplyResult summarizes the writes of one Apply.
type ApplyResult struct {
	Inserted    int64 `json:"inserted"`
	Updated     int64 `json:"updated"`
	Deleted     int64 `json:"deleted"`
	Safeguarded bool  `json:"safeguarded"`
	ViewCreated bool  `json:"view_created"`
}

// Reconciler applies batches to the destination.
type Reconciler struct {
	dest      Destination
	view      *LatestView
	projector *schema.Projector
	mode      Mode
}

// NewReconciler returns a reconciler writing to dest in mode.
func NewReconciler(dest Destination, projector *schema.Projector, mode Mode) *Reconciler {
	return &Reconciler{
		dest:      dest,
		view:      NewLatestView(dest),
		projector: projector,
		mode:      mode,
	}
}

// View returns the reconciler's latest-state view.
func (r *Reconciler) View() *LatestView {
	return r.view
}

// Apply writes batch in order: view, appends, merge, safeguard, deletes.
// wm must be the watermark the batch was drained from. Nothing is retried;
// a failure leaves earlier steps applied, which a re-run tolerates.
func (r *Reconciler) Apply(ctx context.Context, batch *Batch, wm Watermark) (ApplyResult, error) {
	var res ApplyResult
	logger := logging.Ctx(ctx)

	created, err := r.view.EnsureExists(ctx)
	if err != nil {
		return res, err
	}
	res.ViewCreated = created

	if batch.Inserts > 0 {
		n, err := r.load(ctx, "append", r.dest.Table(), batch.InsertPath)
		if err != nil {
			return res, err
		}
		res.Inserted = n
		metrics.RecordRowsApplied("append", n)
		logger.Info().Str("table", r.dest.Table()).Int64("rows", n).Msg("Inserted rows")
	} else {
		logger.Info().Msg("No insert rows")
	}

	if r.mode == ModeMerge {
		if batch.Updates > 0 {
			n, err := r.merge(ctx, batch.UpdatePath)
			if err != nil {
				return res, err
			}
			res.Updated = n
			metrics.RecordRowsApplied("merge", n)
			logger.Info().Str("table", r.dest.Table()).Int64("rows", n).Msg("Updated rows")
		} else {
			logger.Info().Msg("No update rows")
		}
	}

	deletes, err := readDeletes(batch)
	if err != nil {
		return res, err
	}
	if len(deletes) == 0 {
		logger.Info().Msg("No delete rows")
		return res, nil
	}

	if r.needsSafeguard(batch, deletes, wm) {
		logger.Info().
			Str("latest_id", wm.LatestID).
			Str("position", batch.Position.String()).
			Msg("Deleting the newest row; inserting position placeholder")
		if err := r.safeguard(ctx, batch); err != nil {
			return res, err
		}
		res.Safeguarded = true
		metrics.RecordRowsApplied("safeguard", 1)
	}

	n, err := r.delete(ctx, deletes)
	if err != nil {
		return res, err
	}
	res.Deleted = n
	metrics.RecordRowsApplied("delete", n)
	logger.Info().Str("table", r.dest.Table()).Int("ids", len(deletes)).Int64("rows", n).Msg("Deleted rows")
	return res, nil
}

// readDeletes returns the identifiers of the batch's delete file. A batch
// built without a spool carries them in memory only.
func readDeletes(batch *Batch) ([]string, error) {
	if batch.DeletePath == "" {
		return batch.Deletes, nil
	}
	ids, err := spool.ReadDeleteFile(batch.DeletePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read delete file: %w", err)
	}
	return ids, nil
}

// needsSafeguard reports whether deleting ids would remove the row the
// watermark was recovered from with nothing newer written first.
func (r *Reconciler) needsSafeguard(batch *Batch, ids []string, wm Watermark) bool {
	if batch.Inserts > 0 || (r.mode == ModeMerge && batch.Updates > 0) {
		return false
	}
	if !wm.HasLatestID || !batch.HasPosition {
		return false
	}
	return slices.Contains(ids, wm.LatestID)
}

func (r *Reconciler) safeguard(ctx context.Context, batch *Batch) error {
	path := filepath.Join(batch.Dir, SafeguardFile)
	if err := spool.WriteRows(path, r.projector.Stamp(batch.Position)); err != nil {
		return fmt.Errorf("failed to write placeholder row: %w", err)
	}
	_, err := r.load(ctx, "safeguard", r.dest.Table(), path)
	return err
}

func (r *Reconciler) load(ctx context.Context, operation, table, path string) (int64, error) {
	start := time.Now()
	n, err := r.dest.LoadNDJSON(ctx, table, path)
	metrics.RecordDestinationJob(operation, time.Since(start), err)
	if err != nil {
		return 0, jobError(ctx, operation, table, err)
	}
	return n, nil
}

// merge stages the update set, merges it and always drops the staging
// table afterwards.
func (r *Reconciler) merge(ctx context.Context, path string) (updated int64, err error) {
	staging := r.dest.StagingTable()
	defer func() {
		if dropErr := r.dest.DropTable(ctx, staging); dropErr != nil {
			if err == nil {
				err = jobError(ctx, "drop", staging, dropErr)
			} else {
				logging.Ctx(ctx).Warn().Err(dropErr).Str("table", staging).Msg("Failed to drop staging table")
			}
		}
	}()

	start := time.Now()
	if err := r.dest.CreateStaging(ctx); err != nil {
		metrics.RecordDestinationJob("stage", time.Since(start), err)
		return 0, jobError(ctx, "stage", staging, err)
	}
	if _, err := r.load(ctx, "stage", staging, path); err != nil {
		return 0, err
	}

	start = time.Now()
	res, err := r.dest.MergeStaged(ctx)
	if err == nil && len(res.MissingIDs) > 0 {
		err = &MergeTargetMissingError{Table: r.dest.Table(), IDs: res.MissingIDs}
	}
	metrics.RecordDestinationJob("merge", time.Since(start), err)
	if err != nil {
		return 0, jobError(ctx, "merge", r.dest.Table(), err)
	}
	return res.Updated, nil
}

func (r *Reconciler) delete(ctx context.Context, ids []string) (int64, error) {
	start := time.Now()
	n, err := r.dest.DeleteIdentifiers(ctx, ids)
	metrics.RecordDestinationJob("delete", time.Since(start), err)
	if err != nil {
		return 0, jobError(ctx, "delete", r.dest.Table(), err)
	}
	return n, nil
}
