// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestGenerateCorrelationID(t *testing.T) {
	id := GenerateCorrelationID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("GenerateCorrelationID() = %q, not a UUID: %v", id, err)
	}
	if id == GenerateCorrelationID() {
		t.Error("expected distinct ids")
	}
}

func TestCorrelationIDContext(t *testing.T) {
	ctx := context.Background()
	if got := CorrelationIDFromContext(ctx); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}

	ctx = ContextWithCorrelationID(ctx, "run-1")
	if got := CorrelationIDFromContext(ctx); got != "run-1" {
		t.Errorf("CorrelationIDFromContext() = %q, want run-1", got)
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithCorrelationID(ctx, "run-42")

	Ctx(ctx).Info().Msg("hello")

	if !strings.Contains(buf.String(), `"correlation_id":"run-42"`) {
		t.Errorf("expected correlation_id in output, got: %s", buf.String())
	}
}
