// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/docmirror/internal/changefeed"
	"github.com/tomtom215/docmirror/internal/logging"
	"github.com/tomtom215/docmirror/internal/metrics"
	"github.com/tomtom215/docmirror/internal/notify"
	"github.com/tomtom215/docmirror/internal/reconcile"
	"github.com/tomtom215/docmirror/internal/schema"
	"github.com/tomtom215/docmirror/internal/spool"
)

// feedCloseTimeout bounds closing the feed after the pass context ended.
const feedCloseTimeout = 10 * time.Second

// Destination is the warehouse a pass reads its watermark from and writes to.
type Destination interface {
	reconcile.Destination
	reconcile.HeadReader
}

// Notifier announces applied batches.
type Notifier interface {
	PublishBatch(ctx context.Context, event *notify.BatchApplied) error
}

// Options configures a Runner.
type Options struct {
	Opener      changefeed.Opener
	Destination Destination
	Projector   *schema.Projector
	Mode        reconcile.Mode

	// Notifier is optional.
	Notifier Notifier

	// WorkDir holds the per-run spool directories. Empty means the OS temp dir.
	WorkDir string
}

// Report describes one pass.
type Report struct {
	RunID      string    `json:"run_id"`
	Table      string    `json:"table"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`

	Watermark   reconcile.Watermark `json:"watermark"`
	Position    changefeed.Position `json:"position"`
	HasPosition bool                `json:"has_position"`

	Events  int                   `json:"events"`
	Skipped int                   `json:"skipped"`
	Applied reconcile.ApplyResult `json:"applied"`

	Notified bool   `json:"notified"`
	Error    string `json:"error,omitempty"`
}

// Succeeded reports whether the pass finished without error.
func (r *Report) Succeeded() bool {
	return r.Error == ""
}

// Runner executes passes. Concurrent RunPass calls are serialized.
type Runner struct {
	opener     changefeed.Opener
	dest       Destination
	watermarks *reconcile.WatermarkStore
	classifier *reconcile.Classifier
	reconciler *reconcile.Reconciler
	notifier   Notifier
	workDir    string
	mode       reconcile.Mode
	now        func() time.Time

	passMu sync.Mutex

	mu   sync.RWMutex
	last *Report
}

// New validates opts and builds a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Opener == nil {
		return nil, errors.New("change feed opener required")
	}
	if opts.Destination == nil {
		return nil, errors.New("destination required")
	}
	if opts.Projector == nil {
		return nil, errors.New("projector required")
	}
	classifier, err := reconcile.NewClassifier(opts.Projector, opts.Mode)
	if err != nil {
		return nil, err
	}
	return &Runner{
		opener:     opts.Opener,
		dest:       opts.Destination,
		watermarks: reconcile.NewWatermarkStore(opts.Destination),
		classifier: classifier,
		reconciler: reconcile.NewReconciler(opts.Destination, opts.Projector, opts.Mode),
		notifier:   opts.Notifier,
		workDir:    opts.WorkDir,
		mode:       opts.Mode,
		now:        time.Now,
	}, nil
}

// Mode returns the input mode passes run in.
func (r *Runner) Mode() reconcile.Mode {
	return r.mode
}

// LastReport returns the report of the most recent pass.
func (r *Runner) LastReport() (Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return Report{}, false
	}
	return *r.last, true
}

// Watermark recovers the current watermark without running a pass.
func (r *Runner) Watermark(ctx context.Context) (reconcile.Watermark, error) {
	return r.watermarks.CurrentWatermark(ctx)
}

// RunPass drains the events currently available after the watermark and
// applies them. The returned report is non-nil even on error.
func (r *Runner) RunPass(ctx context.Context) (*Report, error) {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	report := &Report{
		RunID:     logging.GenerateCorrelationID(),
		Table:     r.dest.Table(),
		Mode:      string(r.mode),
		StartedAt: r.now(),
	}
	ctx = logging.ContextWithCorrelationID(ctx, report.RunID)
	logger := logging.Ctx(ctx)
	logger.Info().Str("table", report.Table).Str("mode", report.Mode).Msg("Pass started")

	err := r.run(ctx, report)

	report.FinishedAt = r.now()
	duration := report.FinishedAt.Sub(report.StartedAt)
	report.DurationMS = duration.Milliseconds()
	metrics.RecordPass(report.Mode, duration, err)
	if err != nil {
		report.Error = err.Error()
		logger.Error().Err(err).Dur("duration", duration).Msg("Pass failed")
	} else {
		logger.Info().
			Int("events", report.Events).
			Int64("inserted", report.Applied.Inserted).
			Int64("updated", report.Applied.Updated).
			Int64("deleted", report.Applied.Deleted).
			Dur("duration", duration).
			Msg("Pass finished")
	}

	r.mu.Lock()
	saved := *report
	r.last = &saved
	r.mu.Unlock()

	return report, err
}

func (r *Runner) run(ctx context.Context, report *Report) error {
	logger := logging.Ctx(ctx)

	wm, err := r.watermarks.CurrentWatermark(ctx)
	if err != nil {
		return err
	}
	report.Watermark = wm
	metrics.SetWatermark(wm.Position.Time, wm.Position.Sequence)

	feed, err := r.opener.Open(ctx, wm.ResumeFrom)
	if err != nil {
		return fmt.Errorf("open change feed at %s: %w", wm.ResumeFrom, err)
	}
	var closeOnce sync.Once
	release := func() { closeOnce.Do(func() { closeFeed(ctx, feed) }) }
	defer release()

	sp, err := spool.Create(r.workDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := sp.Remove(); err != nil {
			logger.Warn().Err(err).Str("dir", sp.Dir()).Msg("Failed to remove spool")
		}
	}()

	batch, err := r.classifier.DrainWindow(ctx, feed, sp)
	if err != nil {
		return err
	}
	release()
	logDecisions(ctx, batch.Decisions)

	report.Events = batch.Events
	report.Skipped = batch.Skipped
	report.Position = batch.Position
	report.HasPosition = batch.HasPosition
	logger.Info().
		Int("events", batch.Events).
		Int("inserts", batch.Inserts).
		Int("updates", batch.Updates).
		Int("deletes", len(batch.Deletes)).
		Int("skipped", batch.Skipped).
		Msg("Window drained")

	applied, err := r.reconciler.Apply(ctx, batch, wm)
	report.Applied = applied
	if err != nil {
		return err
	}

	if r.notifier != nil && batch.HasPosition {
		report.Notified = r.announce(ctx, report)
	}
	return nil
}

// announce publishes the committed batch. Failures are logged only.
func (r *Runner) announce(ctx context.Context, report *Report) bool {
	event := &notify.BatchApplied{
		RunID:       report.RunID,
		Table:       report.Table,
		Mode:        report.Mode,
		Inserted:    report.Applied.Inserted,
		Updated:     report.Applied.Updated,
		Deleted:     report.Applied.Deleted,
		Safeguarded: report.Applied.Safeguarded,
		From:        report.Watermark.ResumeFrom,
		To:          report.Position,
		AppliedAt:   r.now().UTC(),
	}
	if err := r.notifier.PublishBatch(ctx, event); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to publish batch event")
		return false
	}
	return true
}

// closeFeed closes feed even when the pass context has been cancelled.
func closeFeed(ctx context.Context, feed changefeed.Feed) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), feedCloseTimeout)
	defer cancel()
	if err := feed.Close(closeCtx); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to close change feed")
	}
}

func logDecisions(ctx context.Context, decisions []reconcile.Decision) {
	logger := logging.Ctx(ctx)
	for i := range decisions {
		d := &decisions[i]
		metrics.RecordEvent(string(d.Kind))
		e := logger.WithLevel(d.Level).
			Str("kind", string(d.Kind)).
			Str("id", d.ID).
			Str("position", d.Position.String()).
			Str("target", string(d.Target))
		if d.CancelledDelete {
			e = e.Bool("cancelled_delete", true)
		}
		if d.Fields > 0 {
			e = e.Int("fields", d.Fields)
		}
		if d.Reason != "" {
			e = e.Str("reason", d.Reason)
		}
		e.Msg("Classified event")
	}
}
