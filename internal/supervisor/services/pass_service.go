// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package services

import (
	"context"
	"sync/atomic"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/docmirror/internal/breaker"
	"github.com/tomtom215/docmirror/internal/logging"
	"github.com/tomtom215/docmirror/internal/metrics"
	"github.com/tomtom215/docmirror/internal/pipeline"
)

// PassRunner runs one mirroring pass.
type PassRunner interface {
	RunPass(ctx context.Context) (*pipeline.Report, error)
}

// PassService runs a pass immediately and then on every tick. Passes never
// overlap: a tick that arrives while a pass runs is dropped by the ticker.
// After enough consecutive failures the breaker opens and ticks are skipped
// until its timeout has elapsed.
type PassService struct {
	runner   PassRunner
	interval time.Duration
	cb       *gobreaker.CircuitBreaker[any]
	mode     string
	name     string

	passes  atomic.Int64
	skipped atomic.Int64
}

// NewPassService creates the scheduler service. mode labels the skipped
// pass metric.
func NewPassService(runner PassRunner, interval time.Duration, cb *gobreaker.CircuitBreaker[any], mode string) *PassService {
	return &PassService{
		runner:   runner,
		interval: interval,
		cb:       cb,
		mode:     mode,
		name:     "pass-scheduler",
	}
}

// Serve implements suture.Service.
func (s *PassService) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", s.interval).Msg("Pass scheduler started")

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Pass scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *PassService) tick(ctx context.Context) {
	err := breaker.Execute(s.cb, func() error {
		_, err := s.runner.RunPass(ctx)
		return err
	})
	if breaker.Rejected(err) {
		s.skipped.Add(1)
		metrics.RecordSkippedPass(s.mode)
		logging.Warn().Str("breaker", s.cb.Name()).Msg("Breaker open; skipping pass")
		return
	}
	s.passes.Add(1)
}

// BreakerState returns the pass breaker state.
func (s *PassService) BreakerState() string {
	return s.cb.State().String()
}

// Passes returns how many passes were started.
func (s *PassService) Passes() int64 {
	return s.passes.Load()
}

// Skipped returns how many ticks the open breaker skipped.
func (s *PassService) Skipped() int64 {
	return s.skipped.Load()
}

// String names the service in supervisor logs.
func (s *PassService) String() string {
	return s.name
}
