// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/docmirror/internal/logging"
)

var (
	// ErrWatermarkUnavailable means the destination holds no row with a
	// usable position. Seed the table before streaming.
	ErrWatermarkUnavailable = errors.New("watermark unavailable")

	// ErrMergeTargetMissing means an update-set identifier has no row in
	// the destination, so an earlier insert was lost.
	ErrMergeTargetMissing = errors.New("merge target missing")

	// ErrDestinationJob wraps every failed destination operation.
	ErrDestinationJob = errors.New("destination job failed")
)

// MergeTargetMissingError carries a sample of the identifiers that had no
// destination row.
type MergeTargetMissingError struct {
	Table string
	IDs   []string
}

func (e *MergeTargetMissingError) Error() string {
	return fmt.Sprintf("merge target missing in %s: no destination row for %s",
		e.Table, strings.Join(e.IDs, ", "))
}

// Is reports whether target is ErrMergeTargetMissing.
func (e *MergeTargetMissingError) Is(target error) bool {
	return target == ErrMergeTargetMissing
}

// DestinationJobError describes a failed destination operation together
// with the diagnostic messages it produced.
type DestinationJobError struct {
	Operation string
	Table     string
	Messages  []string
	Err       error
}

func (e *DestinationJobError) Error() string {
	return fmt.Sprintf("%s on %s failed: %v", e.Operation, e.Table, e.Err)
}

func (e *DestinationJobError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrDestinationJob.
func (e *DestinationJobError) Is(target error) bool {
	return target == ErrDestinationJob
}

// jobError wraps err and logs each of its diagnostic messages.
func jobError(ctx context.Context, operation, table string, err error) *DestinationJobError {
	je := &DestinationJobError{
		Operation: operation,
		Table:     table,
		Messages:  diagnostics(err),
		Err:       err,
	}
	logger := logging.Ctx(ctx)
	for _, msg := range je.Messages {
		logger.Error().Str("operation", operation).Str("table", table).Msg(msg)
	}
	return je
}

// diagnostics splits an error into its individual messages: one per joined
// error, one per non-blank line.
func diagnostics(err error) []string {
	if err == nil {
		return nil
	}
	var msgs []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, diagnostics(e)...)
		}
		return msgs
	}
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			msgs = append(msgs, line)
		}
	}
	return msgs
}
