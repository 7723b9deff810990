// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
mongodb:
  uri: mongodb://localhost:27017/?replicaSet=rs0
  db: shop
  collection: orders
warehouse:
  path: /tmp/shop.duckdb
  table: orders
  schema_file: /tmp/orders.schema.json
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.TimeField != "time" || cfg.IncrementField != "increment" {
		t.Errorf("stamp fields = %q/%q, want time/increment", cfg.TimeField, cfg.IncrementField)
	}
	if cfg.IdentifierField != "_id" {
		t.Errorf("IdentifierField = %q, want _id", cfg.IdentifierField)
	}
	if cfg.InputMode != ModeAppend {
		t.Errorf("InputMode = %q, want append", cfg.InputMode)
	}
	if cfg.Warehouse.JobTimeout != 10*time.Minute {
		t.Errorf("Warehouse.JobTimeout = %v, want 10m", cfg.Warehouse.JobTimeout)
	}
	if cfg.NATS.Enabled {
		t.Error("NATS.Enabled should be false by default")
	}
	if cfg.Schedule.BreakerFailures != 5 {
		t.Errorf("Schedule.BreakerFailures = %d, want 5", cfg.Schedule.BreakerFailures)
	}
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+"input_mode: merge\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MongoDB.Collection != "orders" {
		t.Errorf("MongoDB.Collection = %q", cfg.MongoDB.Collection)
	}
	if cfg.Warehouse.Table != "orders" {
		t.Errorf("Warehouse.Table = %q", cfg.Warehouse.Table)
	}
	if !cfg.IsMerge() {
		t.Error("IsMerge() = false, want true")
	}
	if cfg.MongoDB.ConnectTimeout != 10*time.Second {
		t.Errorf("default ConnectTimeout not kept: %v", cfg.MongoDB.ConnectTimeout)
	}
}

func TestLoad_ExpandsEnvironmentInFile(t *testing.T) {
	t.Setenv("DOCMIRROR_TEST_TABLE", "invoices")
	body := `
mongodb:
  uri: mongodb://localhost:27017
  db: shop
  collection: ${DOCMIRROR_TEST_TABLE}
warehouse:
  path: /tmp/shop.duckdb
  table: ${DOCMIRROR_TEST_TABLE}
  schema_file: /tmp/schema.json
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Warehouse.Table != "invoices" || cfg.MongoDB.Collection != "invoices" {
		t.Errorf("expansion failed: table=%q collection=%q", cfg.Warehouse.Table, cfg.MongoDB.Collection)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("INPUT_MODE", "merge")
	t.Setenv("DUCKDB_PATH", "/var/lib/docmirror.duckdb")
	t.Setenv("SCHEDULE_INTERVAL", "30s")
	t.Setenv("SCHEDULE_BREAKER_FAILURES", "3")

	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InputMode != ModeMerge {
		t.Errorf("InputMode = %q, want merge", cfg.InputMode)
	}
	if cfg.Warehouse.Path != "/var/lib/docmirror.duckdb" {
		t.Errorf("Warehouse.Path = %q", cfg.Warehouse.Path)
	}
	if cfg.Schedule.Interval != 30*time.Second {
		t.Errorf("Schedule.Interval = %v, want 30s", cfg.Schedule.Interval)
	}
	if cfg.Schedule.BreakerFailures != 3 {
		t.Errorf("Schedule.BreakerFailures = %d, want 3", cfg.Schedule.BreakerFailures)
	}
}

func TestLoad_DebugForcesDebugLevel(t *testing.T) {
	t.Setenv(DebugEnvVar, "1")
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() with a missing file should fail")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"MONGODB_URI", "mongodb.uri"},
		{"DUCKDB_PATH", "warehouse.path"},
		{"NATS_EMBEDDED", "nats.embedded_server"},
		{"HTTP_ADDR", "schedule.http_addr"},
		{"HOME", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.key); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
