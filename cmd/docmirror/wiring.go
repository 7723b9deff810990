// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package main

import (
	"context"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/docmirror/internal/breaker"
	"github.com/tomtom215/docmirror/internal/config"
	"github.com/tomtom215/docmirror/internal/logging"
	"github.com/tomtom215/docmirror/internal/metrics"
	"github.com/tomtom215/docmirror/internal/notify"
	"github.com/tomtom215/docmirror/internal/pipeline"
	"github.com/tomtom215/docmirror/internal/reconcile"
	"github.com/tomtom215/docmirror/internal/schema"
	"github.com/tomtom215/docmirror/internal/source"
	"github.com/tomtom215/docmirror/internal/warehouse"
)

const shutdownTimeout = 15 * time.Second

// app holds the components shared by the subcommands. Fields stay nil
// for components a command does not need.
type app struct {
	cfg       *config.Config
	projector *schema.Projector
	mode      reconcile.Mode
	wh        *warehouse.Warehouse
	src       *source.MongoSource

	natsServer *notify.EmbeddedServer
	publisher  *notify.Publisher
}

// loadConfig loads the configuration and starts logging with it.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	if cfg.Logging.Format != "" {
		logCfg.Format = cfg.Logging.Format
	}
	logCfg.Caller = cfg.Logging.Caller
	logCfg.File = cfg.Logging.File
	if cfg.Logging.MaxSizeMB > 0 {
		logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
	}
	if cfg.Logging.MaxBackups > 0 {
		logCfg.MaxBackups = cfg.Logging.MaxBackups
	}
	logging.Init(logCfg)

	return cfg, nil
}

// openWarehouse loads the schema and opens the destination.
func openWarehouse(opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	mode, err := reconcile.ParseMode(cfg.InputMode)
	if err != nil {
		return nil, err
	}

	sch, err := schema.LoadFile(cfg.Warehouse.SchemaFile)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	wh, err := warehouse.Open(&cfg.Warehouse, warehouse.Layout{
		Schema:          sch,
		IdentifierField: cfg.IdentifierField,
		TimeField:       cfg.TimeField,
		IncrementField:  cfg.IncrementField,
	})
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}

	logging.Info().
		Str("path", cfg.Warehouse.Path).
		Str("table", cfg.Warehouse.Table).
		Str("mode", string(mode)).
		Msg("Warehouse opened")

	return &app{
		cfg:       cfg,
		projector: schema.NewProjector(sch, cfg.TimeField, cfg.IncrementField),
		mode:      mode,
		wh:        wh,
	}, nil
}

// openPipeline additionally connects the change stream source and, when
// enabled, the batch notifier.
func openPipeline(ctx context.Context, opts *RootOptions) (*app, *pipeline.Runner, error) {
	a, err := openWarehouse(opts)
	if err != nil {
		return nil, nil, err
	}

	a.src, err = source.NewMongoSource(ctx, &a.cfg.MongoDB)
	if err != nil {
		a.close()
		return nil, nil, fmt.Errorf("connect source: %w", err)
	}

	if a.cfg.NATS.Enabled {
		if err := a.initNotify(ctx); err != nil {
			a.close()
			return nil, nil, err
		}
	}

	runOpts := pipeline.Options{
		Opener:      a.src,
		Destination: a.wh,
		Projector:   a.projector,
		Mode:        a.mode,
		WorkDir:     a.cfg.WorkDir,
	}
	if a.publisher != nil {
		runOpts.Notifier = a.publisher
	}

	runner, err := pipeline.New(runOpts)
	if err != nil {
		a.close()
		return nil, nil, err
	}
	return a, runner, nil
}

// initNotify starts the embedded server if configured, provisions the
// stream and creates the publisher.
func (a *app) initNotify(ctx context.Context) error {
	natsCfg := &a.cfg.NATS
	url := natsCfg.URL

	if natsCfg.EmbeddedServer {
		serverCfg, err := notify.ServerConfigFromURL(natsCfg.URL, natsCfg.StoreDir)
		if err != nil {
			return err
		}
		a.natsServer, err = notify.NewEmbeddedServer(serverCfg)
		if err != nil {
			return fmt.Errorf("start embedded NATS server: %w", err)
		}
		url = a.natsServer.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	nc, err := natsgo.Connect(url, natsgo.Name("docmirror-provisioner"))
	if err != nil {
		return fmt.Errorf("connect NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	if _, err := notify.EnsureStream(ctx, js, natsCfg); err != nil {
		return err
	}

	pub, err := notify.NewNATSPublisher(natsCfg, url, nil)
	if err != nil {
		return err
	}
	a.publisher = notify.NewPublisher(pub, natsCfg.SubjectPrefix, breaker.New(notify.DefaultBreakerConfig()))

	logging.Info().
		Str("stream", natsCfg.StreamName).
		Str("subject_prefix", natsCfg.SubjectPrefix).
		Msg("Batch notifications enabled")
	return nil
}

// close releases everything in reverse order of acquisition.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close notify publisher")
		}
	}
	if a.natsServer != nil {
		if err := a.natsServer.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Failed to stop embedded NATS server")
		}
	}
	if a.src != nil {
		if err := a.src.Close(ctx); err != nil {
			logging.Warn().Err(err).Msg("Failed to disconnect source")
		}
	}
	if a.wh != nil {
		if err := a.wh.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close warehouse")
		}
	}
}

// pushMetrics pushes the process metrics when a Pushgateway is configured.
func (a *app) pushMetrics(ctx context.Context) {
	url := a.cfg.Metrics.PushgatewayURL
	if url == "" {
		return
	}
	if err := metrics.Push(ctx, url, a.cfg.Metrics.JobName, a.cfg.Warehouse.Table); err != nil {
		logging.Warn().Err(err).Str("url", url).Msg("Failed to push metrics")
	}
}
