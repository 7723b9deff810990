// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pass results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

var (
	// Pass Metrics
	PassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docmirror_passes_total",
			Help: "Total number of reconciliation passes by outcome",
		},
		[]string{"mode", "result"},
	)

	PassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docmirror_pass_duration_seconds",
			Help:    "Duration of reconciliation passes in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)

	LastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docmirror_last_success_timestamp_seconds",
			Help: "Unix time of the last successful pass",
		},
	)

	// Change Event Metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docmirror_events_total",
			Help: "Total number of change events drained, by kind",
		},
		[]string{"kind"},
	)

	RowsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docmirror_rows_applied_total",
			Help: "Total number of destination rows written, by operation",
		},
		[]string{"operation"}, // "append", "merge", "delete", "safeguard"
	)

	// Watermark Metrics
	WatermarkTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docmirror_watermark_time_seconds",
			Help: "Time component of the recovered watermark",
		},
	)

	WatermarkIncrement = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docmirror_watermark_increment",
			Help: "Increment component of the recovered watermark",
		},
	)

	// Destination Metrics
	DestinationJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docmirror_destination_job_duration_seconds",
			Help:    "Duration of DuckDB destination jobs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DestinationJobErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docmirror_destination_job_errors_total",
			Help: "Total number of failed DuckDB destination jobs",
		},
		[]string{"operation"},
	)

	// Notification Metrics
	NotifyPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docmirror_notify_publish_total",
			Help: "Total number of BatchApplied publish attempts by result",
		},
		[]string{"result"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Seed Metrics
	SeedDocuments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docmirror_seed_documents_total",
			Help: "Total number of export documents processed by the seed command",
		},
		[]string{"result"}, // "written", "skipped"
	)
)

// RecordPass records the outcome and duration of one pass.
func RecordPass(mode string, duration time.Duration, err error) {
	PassDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if err != nil {
		PassesTotal.WithLabelValues(mode, ResultFailure).Inc()
		return
	}
	PassesTotal.WithLabelValues(mode, ResultSuccess).Inc()
	LastSuccess.Set(float64(time.Now().Unix()))
}

// RecordSkippedPass records a pass that was not started.
func RecordSkippedPass(mode string) {
	PassesTotal.WithLabelValues(mode, ResultSkipped).Inc()
}

// RecordEvent counts one drained change event.
func RecordEvent(kind string) {
	EventsTotal.WithLabelValues(kind).Inc()
}

// RecordRowsApplied adds n written rows for operation.
func RecordRowsApplied(operation string, n int64) {
	if n > 0 {
		RowsApplied.WithLabelValues(operation).Add(float64(n))
	}
}

// SetWatermark exposes the recovered watermark position.
func SetWatermark(t, increment uint32) {
	WatermarkTime.Set(float64(t))
	WatermarkIncrement.Set(float64(increment))
}

// RecordDestinationJob records a destination job metric
func RecordDestinationJob(operation string, duration time.Duration, err error) {
	DestinationJobDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DestinationJobErrors.WithLabelValues(operation).Inc()
	}
}

// RecordNotifyPublish counts one BatchApplied publish attempt.
func RecordNotifyPublish(err error) {
	if err != nil {
		NotifyPublishTotal.WithLabelValues(ResultFailure).Inc()
		return
	}
	NotifyPublishTotal.WithLabelValues(ResultSuccess).Inc()
}

// RecordBreakerRequest counts a request through the named breaker.
func RecordBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// RecordBreakerTransition records a state change of the named breaker.
// States are the gobreaker names: closed, half-open, open.
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordSeed counts documents written and skipped by a seed run.
func RecordSeed(written, skipped int64) {
	if written > 0 {
		SeedDocuments.WithLabelValues("written").Add(float64(written))
	}
	if skipped > 0 {
		SeedDocuments.WithLabelValues("skipped").Add(float64(skipped))
	}
}
