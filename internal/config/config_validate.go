// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/docmirror/internal/validation"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := validateMongoURI(c.MongoDB.URI); err != nil {
		return fmt.Errorf("MONGODB_URI is invalid: %w", err)
	}

	if err := c.validateTableName(); err != nil {
		return err
	}

	return c.validateNATS()
}

// validateTableName rejects table names that collide with the staging table
// or latest-state view of another table.
func (c *Config) validateTableName() error {
	for _, suffix := range []string{"_tmp", "_latest"} {
		if strings.HasSuffix(c.Warehouse.Table, suffix) {
			return fmt.Errorf("WAREHOUSE_TABLE must not end in %q (reserved for derived tables)", suffix)
		}
	}
	return nil
}

// validateNATS validates NATS configuration (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}

	if !c.NATS.EmbeddedServer {
		if err := validateNATSURL(c.NATS.URL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
	}

	if c.NATS.StreamName == "" {
		return fmt.Errorf("NATS_STREAM is required when NATS_ENABLED=true")
	}
	if strings.ContainsAny(c.NATS.StreamName, ". *>") {
		return fmt.Errorf("NATS_STREAM must not contain '.', ' ', '*' or '>'")
	}
	if c.NATS.SubjectPrefix == "" || strings.ContainsAny(c.NATS.SubjectPrefix, " *>") {
		return fmt.Errorf("NATS_SUBJECT_PREFIX must be a literal subject")
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
	}
	if c.NATS.ReconnectWait < 0 {
		return fmt.Errorf("NATS_RECONNECT_WAIT must not be negative")
	}

	return nil
}
