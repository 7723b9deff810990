// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package reconcile

import (
	"context"
	"sync"
)

// ViewCatalog looks up and creates the latest-state view.
type ViewCatalog interface {
	LatestViewName() string
	ViewExists(ctx context.Context, name string) (bool, error)
	CreateLatestView(ctx context.Context) error
}

// LatestView maintains <table>_latest: one row per non-NULL identifier,
// the one with the highest (time, increment).
type LatestView struct {
	catalog ViewCatalog

	mu      sync.Mutex
	ensured bool
}

// NewLatestView returns a LatestView backed by catalog.
func NewLatestView(catalog ViewCatalog) *LatestView {
	return &LatestView{catalog: catalog}
}

// EnsureExists creates the view if the catalog does not have it. created
// reports whether this call defined it. After one success later calls do
// not consult the catalog again.
func (v *LatestView) EnsureExists(ctx context.Context) (created bool, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.ensured {
		return false, nil
	}
	name := v.catalog.LatestViewName()
	exists, err := v.catalog.ViewExists(ctx, name)
	if err != nil {
		return false, jobError(ctx, "view", name, err)
	}
	if !exists {
		if err := v.catalog.CreateLatestView(ctx); err != nil {
			return false, jobError(ctx, "view", name, err)
		}
		created = true
	}
	v.ensured = true
	return created, nil
}
