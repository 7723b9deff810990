// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var _ suture.Service = (*HTTPServerService)(nil)

// fakeStatusServer stands in for the status *http.Server. With listenErr
// unset, ListenAndServe blocks until Shutdown.
type fakeStatusServer struct {
	listenErr   error
	shutdownErr error

	listening chan struct{}
	closed    chan struct{}
	listens   atomic.Int32
	shutdowns atomic.Int32
}

func newFakeStatusServer() *fakeStatusServer {
	return &fakeStatusServer{
		listening: make(chan struct{}, 8),
		closed:    make(chan struct{}),
	}
}

func (f *fakeStatusServer) ListenAndServe() error {
	f.listens.Add(1)
	select {
	case f.listening <- struct{}{}:
	default:
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.closed
	return http.ErrServerClosed
}

func (f *fakeStatusServer) Shutdown(context.Context) error {
	if f.shutdowns.Add(1) == 1 {
		close(f.closed)
	}
	return f.shutdownErr
}

func waitListening(t *testing.T, f *fakeStatusServer) {
	t.Helper()
	select {
	case <-f.listening:
	case <-time.After(2 * time.Second):
		t.Fatal("status server never started listening")
	}
}

func TestNewHTTPServerService_Timeout(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"explicit", 3 * time.Second, 3 * time.Second},
		{"zero uses default", 0, defaultShutdownTimeout},
		{"negative uses default", -time.Second, defaultShutdownTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewHTTPServerService(newFakeStatusServer(), tt.in)
			if svc.shutdownTimeout != tt.want {
				t.Errorf("shutdownTimeout = %v, want %v", svc.shutdownTimeout, tt.want)
			}
			if svc.String() != "http-server" {
				t.Errorf("String() = %q", svc.String())
			}
		})
	}
}

func TestHTTPServerService_Serve(t *testing.T) {
	t.Run("cancel shuts the server down", func(t *testing.T) {
		srv := newFakeStatusServer()
		svc := NewHTTPServerService(srv, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		waitListening(t, srv)
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return after cancel")
		}
		if got := srv.shutdowns.Load(); got != 1 {
			t.Errorf("shutdowns = %d, want 1", got)
		}
	})

	t.Run("listen failure is returned", func(t *testing.T) {
		srv := newFakeStatusServer()
		srv.listenErr = errors.New("listen tcp 127.0.0.1:9270: bind: address already in use")
		svc := NewHTTPServerService(srv, time.Second)

		err := svc.Serve(context.Background())
		if !errors.Is(err, srv.listenErr) {
			t.Errorf("Serve() = %v, want wrapped listen error", err)
		}
		if got := srv.shutdowns.Load(); got != 0 {
			t.Errorf("shutdowns = %d, want 0", got)
		}
	})

	t.Run("shutdown failure is returned", func(t *testing.T) {
		srv := newFakeStatusServer()
		srv.shutdownErr = errors.New("context deadline exceeded")
		svc := NewHTTPServerService(srv, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		waitListening(t, srv)
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, srv.shutdownErr) {
				t.Errorf("Serve() = %v, want shutdown error", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return after cancel")
		}
	})
}

func TestHTTPServerService_RestartedBySupervisor(t *testing.T) {
	srv := newFakeStatusServer()
	srv.listenErr = errors.New("bind: address already in use")
	svc := NewHTTPServerService(srv, time.Second)

	sup := suture.New("api-layer", suture.Spec{
		FailureThreshold: 10,
		FailureBackoff:   5 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	waitListening(t, srv)
	waitListening(t, srv)
	cancel()
	<-errCh

	if got := srv.listens.Load(); got < 2 {
		t.Errorf("listens = %d, want the failing server restarted", got)
	}
}
