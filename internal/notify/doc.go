// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

/*
Package notify announces committed batches on NATS JetStream.

After the reconciler has applied a batch, the pipeline publishes one
BatchApplied message to "<subject_prefix>.<table>". Downstream consumers use
it to refresh caches or trigger their own jobs without polling the warehouse.

Components:
  - Publisher: Watermill publisher wrapped in a gobreaker circuit breaker
  - EnsureStream: idempotent JetStream stream provisioning
  - EmbeddedServer: in-process nats-server for single-host deployments

Publishing never fails a pass. The batch is already committed when the
message is sent, so failures are logged and counted only.
*/
package notify
