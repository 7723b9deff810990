// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/docmirror/internal/logging"
)

const readinessPingTimeout = 2 * time.Second

// Handler serves the status endpoints.
type Handler struct {
	status    StatusSource
	breaker   BreakerSource
	warehouse Pinger
	startTime time.Time
}

// Liveness is the /healthz payload.
type Liveness struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Readiness is the /readyz payload.
type Readiness struct {
	Ready        bool     `json:"ready"`
	BreakerState string   `json:"breaker_state,omitempty"`
	LastRunID    string   `json:"last_run_id,omitempty"`
	Reasons      []string `json:"reasons,omitempty"`
}

// Healthz reports that the process is serving.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, Liveness{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	})
}

// Readyz reports whether mirroring is healthy.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ready := Readiness{Ready: true}
	notReady := func(reason string) {
		ready.Ready = false
		ready.Reasons = append(ready.Reasons, reason)
	}

	if h.status == nil {
		notReady("no pass runner")
	} else if report, ok := h.status.LastReport(); !ok {
		notReady("no pass has run yet")
	} else {
		ready.LastRunID = report.RunID
		if !report.Succeeded() {
			notReady("last pass failed: " + report.Error)
		}
	}

	if h.breaker != nil {
		ready.BreakerState = h.breaker.BreakerState()
		if ready.BreakerState == "open" {
			notReady("pass breaker is open")
		}
	}

	if h.warehouse != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessPingTimeout)
		defer cancel()
		if err := h.warehouse.Ping(ctx); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Warehouse ping failed")
			notReady("warehouse unreachable")
		}
	}

	status := http.StatusOK
	if !ready.Ready {
		status = http.StatusServiceUnavailable
	}
	respondData(w, status, ready)
}

// Status returns the last pass report.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	if h.status == nil {
		respondError(w, http.StatusNotFound, "NO_PASS", "no pass has run yet")
		return
	}
	report, ok := h.status.LastReport()
	if !ok {
		respondError(w, http.StatusNotFound, "NO_PASS", "no pass has run yet")
		return
	}
	respondData(w, http.StatusOK, report)
}
