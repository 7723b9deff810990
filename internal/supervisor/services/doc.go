// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

/*
Package services adapts docmirror components to suture.Service.

  - PassService runs a mirroring pass on every tick behind a circuit breaker
  - HTTPServerService runs the status server and shuts it down on cancel

Both return ctx.Err() on shutdown so suture does not restart them.
*/
package services
