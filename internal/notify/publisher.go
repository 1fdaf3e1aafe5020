// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package notify

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/palette/internal/config"
	"github.com/tomtom215/palette/internal/logging"
	"github.com/tomtom215/palette/internal/metrics"
)

// defaultTimeout bounds a single publish when the config leaves it unset.
const defaultTimeout = 10 * time.Second

// Publisher announces finished snapshots.
type Publisher interface {
	Publish(ctx context.Context, event SnapshotPublished) error
	Close() error
}

// New builds the publisher selected by cfg. A disabled config yields a no-op.
func New(cfg *config.NotifyConfig) (Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return Noop{}, nil
	}
	switch cfg.Driver {
	case config.DriverNATS:
		return NewNATSPublisher(cfg)
	case config.DriverChannel:
		return NewChannelPublisher(cfg.Topic), nil
	default:
		return nil, fmt.Errorf("unknown notify driver %q", cfg.Driver)
	}
}

// Noop discards every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, SnapshotPublished) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }

// watermillPublisher sends events through any Watermill publisher.
type watermillPublisher struct {
	pub     message.Publisher
	topic   string
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
}

func newWatermillPublisher(pub message.Publisher, topic string, timeout time.Duration) *watermillPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &watermillPublisher{pub: pub, topic: topic, timeout: timeout}
}

// Publish encodes event and sends it, giving up after the configured timeout.
// The outcome is counted in metrics either way.
//
//nolint:gocritic // hugeParam: event passed by value for immutability
func (p *watermillPublisher) Publish(ctx context.Context, event SnapshotPublished) error {
	err := p.publish(ctx, event)
	metrics.RecordNotify(err)
	return err
}

//nolint:gocritic // hugeParam: see Publish
func (p *watermillPublisher) publish(ctx context.Context, event SnapshotPublished) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.PublishedAt.IsZero() {
		event.PublishedAt = time.Now().UTC()
	}

	payload, err := event.Encode()
	if err != nil {
		return err
	}

	msg := message.NewMessage(event.EventID, payload)
	msg.Metadata.Set("run_id", event.RunID)
	msg.Metadata.Set("version", strconv.Itoa(event.Version))
	msg.Metadata.Set(natsgo.MsgIdHdr, event.EventID)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	msg.SetContext(ctx)

	done := make(chan error, 1)
	go func() {
		done <- p.pub.Publish(p.topic, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("publish to %s: %w", p.topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", p.topic, ctx.Err())
	}
}

// Close shuts down the underlying publisher.
func (p *watermillPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.pub.Close()
}

// NATSPublisher publishes events to a NATS server.
type NATSPublisher struct {
	*watermillPublisher
}

// NewNATSPublisher connects to cfg.URL. Core NATS publish is used unless
// cfg.JetStream is set, in which case the stream is auto-provisioned and
// message ids are tracked for deduplication.
func NewNATSPublisher(cfg *config.NotifyConfig) (*NATSPublisher, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())

	natsOpts := []natsgo.Option{
		natsgo.Name("palette-featurizer"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(10),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      !cfg.JetStream,
			AutoProvision: cfg.JetStream,
			TrackMsgId:    cfg.JetStream,
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	return &NATSPublisher{newWatermillPublisher(pub, cfg.Topic, cfg.Timeout)}, nil
}

// ChannelPublisher delivers events to in-process subscribers.
type ChannelPublisher struct {
	*watermillPublisher
	gc *gochannel.GoChannel
}

// NewChannelPublisher creates an in-process publisher on topic.
// Events published with no subscriber attached are dropped.
func NewChannelPublisher(topic string) *ChannelPublisher {
	gc := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewSlogLogger(logging.NewSlogLogger()),
	)
	return &ChannelPublisher{
		watermillPublisher: newWatermillPublisher(gc, topic, 0),
		gc:                 gc,
	}
}

// Subscribe returns a channel of raw messages on the publisher's topic.
// Each message must be acked. The channel closes when ctx is done or the
// publisher is closed.
func (p *ChannelPublisher) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return p.gc.Subscribe(ctx, p.topic)
}
