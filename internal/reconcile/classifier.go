// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/docmirror/internal/changefeed"
	"github.com/tomtom215/docmirror/internal/schema"
	"github.com/tomtom215/docmirror/internal/spool"
)

// Classifier routes change events into the sets of a Batch. The mode is
// fixed at construction.
type Classifier struct {
	projector *schema.Projector
	mode      Mode

	// routes covers events with no earlier delete in the window.
	routes map[changefeed.Kind]Target
	// afterDelete covers events that cancel a pending delete.
	afterDelete Target
}

// NewClassifier builds the routing table for mode.
func NewClassifier(projector *schema.Projector, mode Mode) (*Classifier, error) {
	if projector == nil {
		return nil, fmt.Errorf("classifier requires a projector")
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	c := &Classifier{
		projector: projector,
		mode:      mode,
		routes: map[changefeed.Kind]Target{
			changefeed.KindInsert: TargetInsert,
			changefeed.KindDelete: TargetPendingDelete,
		},
	}
	switch mode {
	case ModeMerge:
		c.routes[changefeed.KindUpdate] = TargetUpdate
		c.routes[changefeed.KindReplace] = TargetUpdate
		c.afterDelete = TargetUpdate
	case ModeAppend:
		c.routes[changefeed.KindUpdate] = TargetInsert
		c.routes[changefeed.KindReplace] = TargetInsert
		c.afterDelete = TargetInsert
	}
	return c, nil
}

// Mode returns the classifier's mode.
func (c *Classifier) Mode() Mode {
	return c.mode
}

// Route returns the target of an event of kind k. cancelsDelete reports
// whether an earlier delete of the same identifier is pending.
func (c *Classifier) Route(k changefeed.Kind, cancelsDelete bool) (Target, error) {
	target, ok := c.routes[k]
	if !ok {
		return "", fmt.Errorf("%w: %q", changefeed.ErrUnsupportedOperation, k)
	}
	if cancelsDelete && target != TargetPendingDelete {
		return c.afterDelete, nil
	}
	return target, nil
}

// pendingDeletes keeps identifiers in arrival order.
type pendingDeletes struct {
	ids   []string
	index map[string]struct{}
}

func (p *pendingDeletes) add(id string) {
	if _, ok := p.index[id]; ok {
		return
	}
	p.index[id] = struct{}{}
	p.ids = append(p.ids, id)
}

// cancel removes id and reports whether it was pending.
func (p *pendingDeletes) cancel(id string) bool {
	if _, ok := p.index[id]; !ok {
		return false
	}
	delete(p.index, id)
	for i, v := range p.ids {
		if v == id {
			p.ids = append(p.ids[:i], p.ids[i+1:]...)
			break
		}
	}
	return true
}

// DrainWindow reads feed until it reports no event is currently available
// and writes the routed rows to sp. The spool is closed on success; on
// error the caller owns its removal.
func (c *Classifier) DrainWindow(ctx context.Context, feed changefeed.Feed, sp *spool.Spool) (*Batch, error) {
	batch := &Batch{
		Mode:       c.mode,
		Dir:        sp.Dir(),
		InsertPath: sp.InsertPath(),
		UpdatePath: sp.UpdatePath(),
		DeletePath: sp.DeletePath(),
	}
	pending := &pendingDeletes{index: make(map[string]struct{})}

	for {
		ev, ok, err := feed.TryNext(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read change feed: %w", err)
		}
		if !ok {
			break
		}
		if err := c.classify(ev, batch, pending, sp); err != nil {
			return nil, err
		}
	}

	if err := sp.WriteDeletes(pending.ids); err != nil {
		return nil, err
	}
	if err := sp.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush spool: %w", err)
	}
	batch.Inserts = sp.Inserts()
	batch.Updates = sp.Updates()
	batch.Deletes = pending.ids
	return batch, nil
}

func (c *Classifier) classify(ev changefeed.Event, batch *Batch, pending *pendingDeletes, sp *spool.Spool) error {
	// Arrival order wins, even when a later event carries an earlier position.
	batch.Position = ev.Position
	batch.HasPosition = true
	batch.Events++

	if _, ok := c.routes[ev.Kind]; !ok {
		return fmt.Errorf("%w: kind %q for id %s at %s",
			changefeed.ErrUnsupportedOperation, ev.Kind, ev.ID, ev.Position)
	}

	decision := Decision{
		Level:    zerolog.DebugLevel,
		Kind:     ev.Kind,
		ID:       ev.ID,
		Position: ev.Position,
	}

	if ev.Kind == changefeed.KindDelete {
		pending.add(ev.ID)
		decision.Target = TargetPendingDelete
		batch.Decisions = append(batch.Decisions, decision)
		return nil
	}

	if ev.Document == nil {
		// The document was removed before its post-image could be read;
		// the delete that follows in the feed handles the identifier.
		decision.Level = zerolog.WarnLevel
		decision.Target = TargetSkipped
		decision.Reason = "missing post-image"
		batch.Skipped++
		batch.Decisions = append(batch.Decisions, decision)
		return nil
	}

	row := c.projector.ProjectAt(ev.Document, ev.Position)
	decision.Fields = row.Len()
	decision.CancelledDelete = pending.cancel(ev.ID)

	target, err := c.Route(ev.Kind, decision.CancelledDelete)
	if err != nil {
		return err
	}
	decision.Target = target

	switch target {
	case TargetInsert:
		err = sp.AppendInsert(row)
	case TargetUpdate:
		err = sp.AppendUpdate(row)
	}
	if err != nil {
		return fmt.Errorf("failed to spool %s of %s: %w", ev.Kind, ev.ID, err)
	}
	batch.Decisions = append(batch.Decisions, decision)
	return nil
}
