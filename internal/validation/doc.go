// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

// Package validation provides struct validation using go-playground/validator v10.
//
// The package keeps one validator instance for the whole process and adds the
// custom tags used by the configuration structs:
//
//   - column: a plain column name (no dots, quotes or control characters)
//   - bytesize: a DuckDB memory size such as "512MB" or "2GB"
//
// # Quick Start
//
//	type WarehouseConfig struct {
//	    Table     string `validate:"required,column"`
//	    MaxMemory string `validate:"omitempty,bytesize"`
//	}
//
//	if verr := validation.ValidateStruct(&cfg); verr != nil {
//	    return fmt.Errorf("invalid warehouse config: %w", verr)
//	}
//
// # Error Messages
//
// Failures are translated to readable messages, one per field:
//
//	required   -> "Table is required"
//	oneof=a b  -> "InputMode must be one of: a b"
//	column     -> "Table must be a plain column name"
//
// # Thread Safety
//
// The singleton validator is initialized once and safe for concurrent use.
package validation
