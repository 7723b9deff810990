// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package notify

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

const (
	defaultNATSPort   = 4222
	serverReadyWithin = 30 * time.Second
)

// ServerConfig configures the embedded server.
type ServerConfig struct {
	Host     string
	Port     int // -1 picks a random port
	StoreDir string
}

// ServerConfigFromURL derives the listen address from the client URL so
// that the embedded server and its clients agree.
func ServerConfigFromURL(rawURL, storeDir string) (ServerConfig, error) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: defaultNATSPort, StoreDir: storeDir}
	if rawURL == "" {
		return cfg, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return cfg, fmt.Errorf("parse NATS URL: %w", err)
	}
	if host := u.Hostname(); host != "" {
		cfg.Host = host
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return cfg, fmt.Errorf("parse NATS port %q: %w", p, err)
		}
		cfg.Port = port
	}
	return cfg, nil
}

// EmbeddedServer is an in-process NATS server with JetStream enabled.
type EmbeddedServer struct {
	server *server.Server
}

// NewEmbeddedServer starts the server and waits until it accepts clients.
func NewEmbeddedServer(cfg ServerConfig) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "docmirror",
		Host:       cfg.Host,
		Port:       cfg.Port,
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		NoSigs:     true,
		MaxPayload: 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	ns.SetLoggerV2(newServerLogger(), false, false, false)

	go ns.Start()

	if !ns.ReadyForConnections(serverReadyWithin) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within %s", serverReadyWithin)
	}
	return &EmbeddedServer{server: ns}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.server.ClientURL()
}

// Addr returns the listen address.
func (s *EmbeddedServer) Addr() net.Addr {
	return s.server.Addr()
}

// IsRunning reports whether the server is up.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// Shutdown stops the server.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.WaitForShutdown()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
