// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

// Package breaker builds gobreaker circuit breakers whose transitions are
// logged and exported as metrics.
package breaker

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/docmirror/internal/logging"
	"github.com/tomtom215/docmirror/internal/metrics"
)

// ResultRejected labels requests refused by an open or half-open breaker.
const ResultRejected = "rejected"

// Config configures a circuit breaker.
type Config struct {
	Name             string
	FailureThreshold uint32
	MaxRequests      uint32        // requests allowed while half-open
	Interval         time.Duration // counter reset period while closed, 0 never resets
	Timeout          time.Duration // open period before half-open
}

// New creates a circuit breaker that trips after FailureThreshold
// consecutive failures.
func New(cfg Config) *gobreaker.CircuitBreaker[any] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	}
	return gobreaker.NewCircuitBreaker[any](settings)
}

// Rejected reports whether err means the breaker refused the request.
func Rejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Result maps an Execute error to a request result label.
func Result(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case Rejected(err):
		return ResultRejected
	default:
		return metrics.ResultFailure
	}
}

// Execute runs fn through cb and counts the request.
func Execute(cb *gobreaker.CircuitBreaker[any], fn func() error) error {
	_, err := cb.Execute(func() (any, error) {
		return nil, fn()
	})
	metrics.RecordBreakerRequest(cb.Name(), Result(err))
	return err
}
