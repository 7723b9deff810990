// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

/*
Package config provides centralized configuration management for Docmirror.

Configuration is loaded with Koanf v2 in three layers, later layers winning:

 1. Defaults from defaultConfig()
 2. A YAML file (--config, CONFIG_PATH, or config.yaml in the working directory)
 3. Environment variables with an explicit name mapping (see envTransformFunc)

The YAML text is expanded against the environment before parsing, so a file
can reference secrets without storing them:

	mongodb:
	  uri: ${MONGODB_URI}
	  db: shop
	  collection: orders
	warehouse:
	  path: /data/shop.duckdb
	  table: orders
	  schema_file: /etc/docmirror/orders.schema.json
	input_mode: merge

# Environment Variables

Source:
  - MONGODB_URI, MONGODB_DB, MONGODB_COLLECTION, MONGODB_CONNECT_TIMEOUT

Warehouse:
  - DUCKDB_PATH, WAREHOUSE_TABLE, SCHEMA_FILE, DUCKDB_MAX_MEMORY, DUCKDB_THREADS,
    WAREHOUSE_JOB_TIMEOUT

Reconciliation:
  - INPUT_MODE (append or merge), TIME_FIELD, INCREMENT_FIELD, IDENTIFIER_FIELD, WORK_DIR

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER, LOG_FILE, LOG_MAX_SIZE_MB, LOG_MAX_BACKUPS
  - DEBUG: any non-empty value forces the debug level

Metrics:
  - PUSHGATEWAY_URL, METRICS_JOB_NAME

Notifications:
  - NATS_ENABLED, NATS_URL, NATS_EMBEDDED, NATS_STORE_DIR, NATS_STREAM,
    NATS_SUBJECT_PREFIX, NATS_MAX_RECONNECTS, NATS_RECONNECT_WAIT

Scheduler:
  - SCHEDULE_INTERVAL, HTTP_ADDR, SCHEDULE_BREAKER_FAILURES, SCHEDULE_BREAKER_TIMEOUT

# Validation

Load validates struct tags through the validation package and then applies
the cross-field rules in Validate. A Config returned by Load is immutable
and safe for concurrent reads.
*/
package config
