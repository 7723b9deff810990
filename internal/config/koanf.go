// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/docmirror/config.yaml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DebugEnvVar forces debug logging when set to any non-empty value.
const DebugEnvVar = "DEBUG"

// defaultConfig returns a Config struct with all default values.
func defaultConfig() *Config {
	return &Config{
		MongoDB: MongoDBConfig{
			ConnectTimeout: 10 * time.Second,
		},
		Warehouse: WarehouseConfig{
			Path:       "docmirror.duckdb",
			MaxMemory:  "2GB",
			Threads:    0,
			JobTimeout: 10 * time.Minute,
		},
		TimeField:       "time",
		IncrementField:  "increment",
		IdentifierField: "_id",
		InputMode:       ModeAppend,
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
		Metrics: MetricsConfig{
			JobName: "docmirror",
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			StoreDir:       "data/nats/jetstream",
			StreamName:     "DOCMIRROR",
			SubjectPrefix:  "docmirror.batches",
			MaxAge:         7 * 24 * time.Hour,
			MaxReconnects:  10,
			ReconnectWait:  2 * time.Second,
		},
		Schedule: ScheduleConfig{
			Interval:        time.Minute,
			HTTPAddr:        "127.0.0.1:9270",
			BreakerFailures: 5,
			BreakerTimeout:  5 * time.Minute,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config file at path, or the first of CONFIG_PATH and DefaultConfigPaths
//     when path is empty. The file text is expanded against the environment.
//  3. Environment variables (highest priority)
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		raw, err := file.Provider(path).ReadBytes()
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		expanded := []byte(os.ExpandEnv(string(raw)))
		if err := k.Load(rawbytes.Provider(expanded), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// DUCKDB_PATH -> warehouse.path, NATS_URL -> nats.url, ...
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if os.Getenv(DebugEnvVar) != "" {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Source
	"mongodb_uri":             "mongodb.uri",
	"mongodb_db":              "mongodb.db",
	"mongodb_collection":      "mongodb.collection",
	"mongodb_connect_timeout": "mongodb.connect_timeout",

	// Warehouse
	"duckdb_path":           "warehouse.path",
	"warehouse_table":       "warehouse.table",
	"schema_file":           "warehouse.schema_file",
	"duckdb_max_memory":     "warehouse.max_memory",
	"duckdb_threads":        "warehouse.threads",
	"warehouse_job_timeout": "warehouse.job_timeout",

	// Reconciliation
	"input_mode":       "input_mode",
	"time_field":       "time_field",
	"increment_field":  "increment_field",
	"identifier_field": "identifier_field",
	"work_dir":         "work_dir",

	// Logging
	"log_level":       "logging.level",
	"log_format":      "logging.format",
	"log_caller":      "logging.caller",
	"log_file":        "logging.file",
	"log_max_size_mb": "logging.max_size_mb",
	"log_max_backups": "logging.max_backups",

	// Metrics
	"pushgateway_url":  "metrics.pushgateway_url",
	"metrics_job_name": "metrics.job_name",

	// NATS
	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_store_dir":      "nats.store_dir",
	"nats_stream":         "nats.stream_name",
	"nats_subject_prefix": "nats.subject_prefix",
	"nats_max_age":        "nats.max_age",
	"nats_max_reconnects": "nats.max_reconnects",
	"nats_reconnect_wait": "nats.reconnect_wait",

	// Scheduler
	"schedule_interval":         "schedule.interval",
	"http_addr":                 "schedule.http_addr",
	"schedule_breaker_failures": "schedule.breaker_failures",
	"schedule_breaker_timeout":  "schedule.breaker_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - MONGODB_URI -> mongodb.uri
//   - DUCKDB_PATH -> warehouse.path
//   - NATS_EMBEDDED -> nats.embedded_server
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
