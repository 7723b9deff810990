// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends everything in the default registry to a Pushgateway, grouped
// by job and table. One-shot commands call it before exiting because no
// scraper sees their /metrics.
func Push(ctx context.Context, url, job, table string) error {
	return PushFrom(ctx, prometheus.DefaultGatherer, url, job, table)
}

// PushFrom pushes the metrics of g.
func PushFrom(ctx context.Context, g prometheus.Gatherer, url, job, table string) error {
	pusher := push.New(url, job).Gatherer(g)
	if table != "" {
		pusher = pusher.Grouping("table", table)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
