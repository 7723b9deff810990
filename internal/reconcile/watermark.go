// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package reconcile

import (
	"context"
	"fmt"
	"math"

	"github.com/tomtom215/docmirror/internal/changefeed"
	"github.com/tomtom215/docmirror/internal/logging"
	"github.com/tomtom215/docmirror/internal/warehouse"
)

// HeadReader reads the newest destination row.
type HeadReader interface {
	Table() string
	LatestRow(ctx context.Context) (warehouse.HeadRow, bool, error)
}

// Watermark is the resume checkpoint recovered from the destination.
type Watermark struct {
	// Position is the position of the newest destination row.
	Position changefeed.Position `json:"position"`
	// ResumeFrom is the first position the next window reads.
	ResumeFrom changefeed.Position `json:"resume_from"`

	// LatestID is the identifier of the newest row. Placeholder rows
	// written by the safeguard have none.
	LatestID    string `json:"latest_id,omitempty"`
	HasLatestID bool   `json:"has_latest_id"`
}

// WatermarkStore recovers the watermark from the destination's own rows.
type WatermarkStore struct {
	dest HeadReader
}

// NewWatermarkStore returns a store reading from dest.
func NewWatermarkStore(dest HeadReader) *WatermarkStore {
	return &WatermarkStore{dest: dest}
}

// CurrentWatermark returns the position of the newest destination row and
// the position right after it. It fails with ErrWatermarkUnavailable when
// the table is empty or the newest row has no usable stamp.
func (s *WatermarkStore) CurrentWatermark(ctx context.Context) (Watermark, error) {
	head, found, err := s.dest.LatestRow(ctx)
	if err != nil {
		return Watermark{}, jobError(ctx, "watermark", s.dest.Table(), err)
	}
	if !found {
		return Watermark{}, fmt.Errorf("%w: table %s is empty", ErrWatermarkUnavailable, s.dest.Table())
	}
	if !head.Time.Valid || !head.Increment.Valid {
		return Watermark{}, fmt.Errorf("%w: newest row of %s has no time or increment", ErrWatermarkUnavailable, s.dest.Table())
	}
	if !fitsUint32(head.Time.Int64) || !fitsUint32(head.Increment.Int64) {
		return Watermark{}, fmt.Errorf("%w: position (%d,%d) of %s is out of range",
			ErrWatermarkUnavailable, head.Time.Int64, head.Increment.Int64, s.dest.Table())
	}

	pos := changefeed.Position{Time: uint32(head.Time.Int64), Sequence: uint32(head.Increment.Int64)}
	wm := Watermark{
		Position:    pos,
		ResumeFrom:  pos.Next(),
		LatestID:    head.ID.String,
		HasLatestID: head.ID.Valid,
	}

	logging.Ctx(ctx).Info().
		Str("table", s.dest.Table()).
		Uint32("time", pos.Time).
		Uint32("increment", pos.Sequence).
		Str("latest_id", wm.LatestID).
		Msg("Recovered watermark")
	return wm, nil
}

func fitsUint32(v int64) bool {
	return v >= 0 && v <= math.MaxUint32
}
