// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

/*
Package api serves the status endpoints of schedule mode with a Chi router.

Endpoints:

	GET /healthz   liveness; always 200 while the process serves
	GET /readyz    200 when the last pass succeeded, the pass breaker is
	               closed and the warehouse answers a ping; 503 otherwise
	GET /status    the last pass report
	GET /metrics   Prometheus exposition

JSON responses share one envelope:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}
*/
package api
