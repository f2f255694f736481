// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package eventbus carries the Ingestion Scanner's "video ingested"
// fan-out to the Timeline Manager and any other interested subscriber
// (spec §4.2, §4.4 domain stack). It wraps github.com/ThreeDotsLabs/watermill:
// an in-process gochannel.GoChannel pub/sub by default, or NATS
// JetStream when built with -tags nats and config.NATSConfig.Enabled.
package eventbus

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/playlistd/internal/config"
	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/logging"
)

// Topics carried over the bus.
const (
	TopicVideoIngested = "video.ingested"
	TopicTimelineReset = "timeline.reset"
)

// VideoIngested is published once per new Video written to the
// Content Index by the Ingestion Scanner.
type VideoIngested struct {
	VideoID   string    `json:"videoId"`
	CreatorID string    `json:"creatorId"`
	Format    string    `json:"format"`
	IndexedAt time.Time `json:"indexedAt"`
}

// Handler processes one decoded message. Returning an error nacks the
// message for redelivery under the NATS-backed Bus; the in-process
// gochannel Bus logs and drops on error (no redelivery semantics).
type Handler func(ctx context.Context, payload []byte) error

// Bus publishes and subscribes to named topics.
type Bus interface {
	Publish(ctx context.Context, topic string, payload any) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// New constructs a Bus from configuration: NATS JetStream when
// cfg.Enabled (only available in binaries built with -tags nats), an
// in-process gochannel otherwise.
func New(cfg config.NATSConfig, logger watermill.LoggerAdapter) (Bus, error) {
	if logger == nil {
		logger = watermillLogAdapter{}
	}
	if cfg.Enabled {
		return newNATSBus(cfg, logger)
	}
	return newGoChannelBus(logger), nil
}

// watermillLogAdapter routes watermill's internal logging through the
// project's zerolog-backed logging package instead of watermill's own
// stdlib logger.
type watermillLogAdapter struct{}

func (watermillLogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	logging.Error().Err(err).Fields(map[string]any(fields)).Msg(msg)
}
func (watermillLogAdapter) Info(msg string, fields watermill.LogFields) {
	logging.Info().Fields(map[string]any(fields)).Msg(msg)
}
func (watermillLogAdapter) Debug(msg string, fields watermill.LogFields) {
	logging.Debug().Fields(map[string]any(fields)).Msg(msg)
}
func (watermillLogAdapter) Trace(msg string, fields watermill.LogFields) {
	logging.Debug().Fields(map[string]any(fields)).Msg(msg)
}
func (watermillLogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogAdapter{}
}

// encode marshals payload with the project's drop-in JSON encoder
// (spec §4.2 domain stack: goccy/go-json) and wraps it in a
// watermill.Message with a fresh UUID for deduplication.
func encode(topic string, payload any) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.Wrap(errs.KindFatal, "encode "+topic+" event", err)
	}
	return message.NewMessage(uuid.NewString(), data), nil
}
