// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package eventbus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/logging"
)

// goChannelBus is the default Bus: an in-process, non-persistent
// publish/subscribe used when NATS is not configured (spec §4.2
// domain stack). It is a single process-wide gochannel.GoChannel.
type goChannelBus struct {
	pubsub *gochannel.GoChannel
}

func newGoChannelBus(logger watermill.LoggerAdapter) *goChannelBus {
	if logger == nil {
		logger = watermillLogAdapter{}
	}
	return &goChannelBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
			Persistent:          false,
		}, logger),
	}
}

func (b *goChannelBus) Publish(ctx context.Context, topic string, payload any) error {
	msg, err := encode(topic, payload)
	if err != nil {
		return err
	}
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return errs.Wrap(errs.KindTransient, "publish "+topic, err)
	}
	return nil
}

func (b *goChannelBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "subscribe "+topic, err)
	}
	go b.consume(ctx, topic, messages, handler)
	return nil
}

func (b *goChannelBus) consume(ctx context.Context, topic string, messages <-chan *message.Message, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := handler(ctx, msg.Payload); err != nil {
				logging.Warn().Err(err).Str("topic", topic).Msg("eventbus handler failed, dropping message")
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}
}

func (b *goChannelBus) Close() error {
	return b.pubsub.Close()
}
