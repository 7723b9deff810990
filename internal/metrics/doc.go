// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

/*
Package metrics provides Prometheus instrumentation for Docmirror.

All instruments are registered on the default registry through promauto, so
the schedule command exposes them on /metrics and one-shot commands can push
them to a Pushgateway with Push.

# Metrics Catalog

Passes:
  - docmirror_passes_total{mode,result}: passes by outcome (success, failure, skipped)
  - docmirror_pass_duration_seconds{mode}: wall time of a pass
  - docmirror_last_success_timestamp_seconds: completion time of the last good pass

Change events:
  - docmirror_events_total{kind}: events drained, by kind
  - docmirror_rows_applied_total{operation}: rows appended, merged, deleted or safeguarded

Watermark:
  - docmirror_watermark_time_seconds, docmirror_watermark_increment

Destination:
  - docmirror_destination_job_duration_seconds{operation}
  - docmirror_destination_job_errors_total{operation}

Notifications and breakers:
  - docmirror_notify_publish_total{result}
  - circuit_breaker_state{name} (0=closed, 1=half-open, 2=open)
  - circuit_breaker_requests_total{name,result}
  - circuit_breaker_state_transitions_total{name,from_state,to_state}

Seeding:
  - docmirror_seed_documents_total{result}

# Usage

	start := time.Now()
	err := runPass(ctx)
	metrics.RecordPass("merge", time.Since(start), err)
*/
package metrics
