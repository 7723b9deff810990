// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package warehouse

import (
	"context"
)

// Stats describes the mirrored table and its derived objects.
type Stats struct {
	Path    string   `json:"path"`
	Table   string   `json:"table"`
	Columns []string `json:"columns"`

	TableExists bool  `json:"table_exists"`
	Rows        int64 `json:"rows"`

	LatestView string `json:"latest_view"`
	ViewExists bool   `json:"view_exists"`
	LatestRows int64  `json:"latest_rows"`

	// StagingLeftover is set when a merge staging table survived an
	// interrupted pass. The next merge replaces it.
	StagingLeftover bool `json:"staging_leftover"`
}

// Stats reports row counts of the table and its latest-state view. Objects
// that do not exist yet count as zero rows.
func (w *Warehouse) Stats(ctx context.Context) (Stats, error) {
	st := Stats{
		Path:       w.Path(),
		Table:      w.Table(),
		Columns:    make([]string, len(w.columns)),
		LatestView: w.LatestViewName(),
	}
	for i, c := range w.columns {
		st.Columns[i] = c.Name
	}

	var err error
	if st.TableExists, err = w.TableExists(ctx, w.Table()); err != nil {
		return st, err
	}
	if st.TableExists {
		if st.Rows, err = w.Count(ctx, w.Table()); err != nil {
			return st, err
		}
	}

	if st.ViewExists, err = w.ViewExists(ctx, w.LatestViewName()); err != nil {
		return st, err
	}
	if st.ViewExists {
		if st.LatestRows, err = w.Count(ctx, w.LatestViewName()); err != nil {
			return st, err
		}
	}

	if st.StagingLeftover, err = w.TableExists(ctx, w.StagingTable()); err != nil {
		return st, err
	}
	return st, nil
}
