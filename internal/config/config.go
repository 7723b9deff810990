// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package config

import "time"

// Input modes.
const (
	ModeAppend = "append"
	ModeMerge  = "merge"
)

// Config holds all application configuration.
type Config struct {
	MongoDB   MongoDBConfig   `koanf:"mongodb"`
	Warehouse WarehouseConfig `koanf:"warehouse"`

	// TimeField and IncrementField name the columns that carry the
	// change position of every row.
	TimeField      string `koanf:"time_field" validate:"required,column"`
	IncrementField string `koanf:"increment_field" validate:"required,column,nefield=TimeField"`

	// IdentifierField is the column holding the document identifier. It must
	// be _id: delete events identify documents only by documentKey._id.
	IdentifierField string `koanf:"identifier_field" validate:"required,eq=_id,nefield=TimeField,nefield=IncrementField"`

	// InputMode decides whether updates are appended or merged in place.
	InputMode string `koanf:"input_mode" validate:"oneof=append merge"`

	// WorkDir holds the per-run spool directories. Empty means the OS temp dir.
	WorkDir string `koanf:"work_dir"`

	Logging  LoggingConfig  `koanf:"logging"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	NATS     NATSConfig     `koanf:"nats"`
	Schedule ScheduleConfig `koanf:"schedule"`
}

// MongoDBConfig identifies the watched collection.
type MongoDBConfig struct {
	URI            string        `koanf:"uri" validate:"required"`
	DB             string        `koanf:"db" validate:"required"`
	Collection     string        `koanf:"collection" validate:"required"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gt=0"`
}

// WarehouseConfig holds the DuckDB destination settings.
type WarehouseConfig struct {
	Path       string `koanf:"path" validate:"required"`
	Table      string `koanf:"table" validate:"required,column"`
	SchemaFile string `koanf:"schema_file" validate:"required"`
	MaxMemory  string `koanf:"max_memory" validate:"omitempty,bytesize"`
	Threads    int    `koanf:"threads" validate:"gte=0"` // 0 = use NumCPU

	// JobTimeout bounds each destination statement when the caller's
	// context carries no deadline.
	JobTimeout time.Duration `koanf:"job_timeout" validate:"gt=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is json or console.
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`

	// File, when set, also writes logs to a rotated file.
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups" validate:"gte=0"`
}

// MetricsConfig holds Prometheus settings for one-shot runs.
type MetricsConfig struct {
	// PushgatewayURL enables pushing pass metrics after stream and seed runs.
	PushgatewayURL string `koanf:"pushgateway_url" validate:"omitempty,url"`
	JobName        string `koanf:"job_name" validate:"required"`
}

// NATSConfig holds the batch notification settings.
type NATSConfig struct {
	// Enabled publishes a BatchApplied message after each committed batch.
	Enabled bool `koanf:"enabled"`

	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer starts an in-process NATS server with JetStream.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory of the embedded server.
	StoreDir string `koanf:"store_dir"`

	StreamName    string        `koanf:"stream_name"`
	SubjectPrefix string        `koanf:"subject_prefix"`
	MaxAge        time.Duration `koanf:"max_age"`

	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// ScheduleConfig holds settings of the long-running schedule command.
type ScheduleConfig struct {
	Interval time.Duration `koanf:"interval" validate:"gt=0"`

	// HTTPAddr serves health, status and metrics. Empty disables the server.
	HTTPAddr string `koanf:"http_addr" validate:"omitempty,hostname_port"`

	// CORSOrigins lets browser dashboards on these origins read the status
	// endpoints.
	CORSOrigins []string `koanf:"cors_origins"`

	// BreakerFailures consecutive failed passes open the breaker; ticks are
	// skipped until BreakerTimeout has elapsed.
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// IsMerge reports whether updates are merged in place.
func (c *Config) IsMerge() bool {
	return c.InputMode == ModeMerge
}
