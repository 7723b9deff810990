// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/docmirror/internal/breaker"
	"github.com/tomtom215/docmirror/internal/config"
	"github.com/tomtom215/docmirror/internal/logging"
	"github.com/tomtom215/docmirror/internal/metrics"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// Publisher sends BatchApplied events through a Watermill publisher with
// circuit breaker protection.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[any]
	subjectPrefix  string

	mu     sync.RWMutex
	closed bool
}

// DefaultBreakerConfig returns the publisher breaker settings.
func DefaultBreakerConfig() breaker.Config {
	return breaker.Config{
		Name:             "notify",
		FailureThreshold: 5,
		MaxRequests:      1,
		Timeout:          30 * time.Second,
	}
}

// NewPublisher wraps pub. A nil breaker publishes without protection.
func NewPublisher(pub message.Publisher, subjectPrefix string, cb *gobreaker.CircuitBreaker[any]) *Publisher {
	return &Publisher{
		publisher:      pub,
		circuitBreaker: cb,
		subjectPrefix:  subjectPrefix,
	}
}

// NewNATSPublisher creates a Watermill JetStream publisher for cfg. The
// stream must already exist; see EnsureStream.
func NewNATSPublisher(cfg *config.NATSConfig, url string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	if logger == nil {
		logger = watermill.NewSlogLogger(logging.NewSlogLogger())
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("docmirror"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return pub, nil
}

// PublishBatch announces a committed batch.
func (p *Publisher) PublishBatch(ctx context.Context, event *BatchApplied) error {
	msg, err := event.toMessage()
	if err != nil {
		return err
	}
	msg.SetContext(ctx)
	subject := event.Subject(p.subjectPrefix)

	err = p.publish(subject, msg)
	metrics.RecordNotifyPublish(err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	logging.Ctx(ctx).Debug().
		Str("subject", subject).
		Str("run_id", event.RunID).
		Msg("Published batch event")
	return nil
}

func (p *Publisher) publish(subject string, msg *message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	if p.circuitBreaker == nil {
		return p.publisher.Publish(subject, msg)
	}
	return breaker.Execute(p.circuitBreaker, func() error {
		return p.publisher.Publish(subject, msg)
	})
}

// BreakerState returns the breaker state, or "disabled" without a breaker.
func (p *Publisher) BreakerState() string {
	if p.circuitBreaker == nil {
		return "disabled"
	}
	return p.circuitBreaker.State().String()
}

// Close shuts down the underlying publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
