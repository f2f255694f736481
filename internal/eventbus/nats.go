// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

//go:build nats

package eventbus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/playlistd/internal/config"
	"github.com/tomtom215/playlistd/internal/errs"
)

// natsBus is the JetStream-backed Bus, enabled at build time with
// -tags nats and at runtime with config.NATSConfig.Enabled (teacher
// pattern: internal/eventprocessor's publisher.go/subscriber.go split,
// generalized to a single Bus covering both roles).
type natsBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
	embedded   *embeddedServer
}

func newNATSBus(cfg config.NATSConfig, logger watermill.LoggerAdapter) (Bus, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
	}

	// Embedded mode boots a real NATS/JetStream server in-process
	// (nats-io/nats-server) instead of dialing an externally operated
	// one, for single-node deployments that shouldn't need a separate
	// NATS cluster to run (spec SPEC_FULL §4.7).
	var embedded *embeddedServer
	url := cfg.URL
	if cfg.Embedded {
		var err error
		embedded, err = startEmbeddedServer()
		if err != nil {
			return nil, err
		}
		url = embedded.clientURL()
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
		},
	}, logger)
	if err != nil {
		if embedded != nil {
			embedded.shutdown()
		}
		return nil, errs.Wrap(errs.KindTransient, "connect nats publisher", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Unmarshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			DurablePrefix: "playlistd",
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		if embedded != nil {
			embedded.shutdown()
		}
		return nil, errs.Wrap(errs.KindTransient, "connect nats subscriber", err)
	}

	return &natsBus{publisher: pub, subscriber: sub, logger: logger, embedded: embedded}, nil
}

func (b *natsBus) Publish(ctx context.Context, topic string, payload any) error {
	msg, err := encode(topic, payload)
	if err != nil {
		return err
	}
	if err := b.publisher.Publish(topic, msg); err != nil {
		return errs.Wrap(errs.KindTransient, "publish "+topic, err)
	}
	return nil
}

func (b *natsBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := b.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "subscribe "+topic, err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				if err := handler(ctx, msg.Payload); err != nil {
					msg.Nack()
					continue
				}
				msg.Ack()
			}
		}
	}()
	return nil
}

func (b *natsBus) Close() error {
	if err := b.subscriber.Close(); err != nil {
		return err
	}
	if err := b.publisher.Close(); err != nil {
		return err
	}
	if b.embedded != nil {
		b.embedded.shutdown()
	}
	return nil
}
