// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/docmirror/internal/pipeline"
)

// StatusSource exposes the last pass report.
type StatusSource interface {
	LastReport() (pipeline.Report, bool)
}

// BreakerSource exposes the pass breaker state.
type BreakerSource interface {
	BreakerState() string
}

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the router. Breaker and Warehouse are optional.
type Options struct {
	Status    StatusSource
	Breaker   BreakerSource
	Warehouse Pinger

	// Gatherer defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	CORSOrigins []string
}

// NewRouter builds the status router.
func NewRouter(opts Options) http.Handler {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	h := &Handler{
		status:    opts.Status,
		breaker:   opts.Breaker,
		warehouse: opts.Warehouse,
		startTime: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(opts.CORSOrigins))
	r.Use(RateLimitByIP())

	r.Group(func(r chi.Router) {
		r.Use(SecurityHeaders())
		r.Get("/healthz", h.Healthz)
		r.Get("/readyz", h.Readyz)
		r.Get("/status", h.Status)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	return r
}
