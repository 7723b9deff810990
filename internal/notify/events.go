// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package notify

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/docmirror/internal/changefeed"
)

// BatchApplied describes one batch committed to the warehouse.
type BatchApplied struct {
	RunID       string              `json:"run_id"`
	Table       string              `json:"table"`
	Mode        string              `json:"mode"`
	Inserted    int64               `json:"inserted"`
	Updated     int64               `json:"updated"`
	Deleted     int64               `json:"deleted"`
	Safeguarded bool                `json:"safeguarded"`
	From        changefeed.Position `json:"from"`
	To          changefeed.Position `json:"to"`
	AppliedAt   time.Time           `json:"applied_at"`
}

// Subject returns the subject the event is published on.
func (e *BatchApplied) Subject(prefix string) string {
	return prefix + "." + e.Table
}

// toMessage encodes the event. The run id doubles as the message UUID so
// that a retried publish is deduplicated by JetStream.
func (e *BatchApplied) toMessage() (*message.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal batch event: %w", err)
	}
	msg := message.NewMessage(e.RunID, data)
	msg.Metadata.Set("table", e.Table)
	msg.Metadata.Set("mode", e.Mode)
	return msg, nil
}

// DecodeBatchApplied parses a BatchApplied payload.
func DecodeBatchApplied(data []byte) (*BatchApplied, error) {
	var e BatchApplied
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal batch event: %w", err)
	}
	return &e, nil
}
