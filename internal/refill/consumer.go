// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package refill closes the Ingestion Scanner's event-bus fan-out
// (spec §4.2, §4.4): it subscribes to eventbus.TopicVideoIngested and
// resumes any idle Display whose active Playlist can now be
// materialized further, grounded on the teacher's
// internal/eventprocessor consumer (message-source subscription,
// decode, handle) without its appender/DLQ/dedup machinery, which
// exists here to serve a media-analytics write path this system
// doesn't have.
package refill

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/eventbus"
	"github.com/tomtom215/playlistd/internal/logging"
	"github.com/tomtom215/playlistd/internal/playback"
	"github.com/tomtom215/playlistd/internal/timeline"
)

// Consumer is the suture.Service that drives the refill. A single
// video.ingested event triggers a scan of every idle Display rather
// than targeting just the ingested Video's matching Blocks: Block
// search terms are arbitrary text queries, so knowing which Display
// would match requires running the same search the Timeline Manager
// already runs in Materialize.
type Consumer struct {
	bus eventbus.Bus
	tl  *timeline.Manager
	m   *playback.Machine
}

// New builds a Consumer over a running event Bus, Timeline Manager,
// and Playback State Machine.
func New(bus eventbus.Bus, tl *timeline.Manager, m *playback.Machine) *Consumer {
	return &Consumer{bus: bus, tl: tl, m: m}
}

// Serve subscribes to TopicVideoIngested and blocks until ctx is
// canceled (suture.Service).
func (c *Consumer) Serve(ctx context.Context) error {
	if err := c.bus.Subscribe(ctx, eventbus.TopicVideoIngested, c.handle); err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

func (c *Consumer) handle(ctx context.Context, payload []byte) error {
	var evt eventbus.VideoIngested
	if err := json.Unmarshal(payload, &evt); err != nil {
		return errs.Wrap(errs.KindBadInput, "decode video.ingested event", err)
	}

	refs, err := c.m.IdleDisplaysWithActivePlaylist(ctx)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		c.refillAndResume(ctx, ref, evt.VideoID)
	}
	return nil
}

// refillAndResume materializes fresh TimelineEntries for one idle
// Display, then nudges it back to playing if that produced a queued
// entry. A Display that still has nothing to play (its Blocks' search
// terms don't match the new Video) is left idle, unchanged.
func (c *Consumer) refillAndResume(ctx context.Context, ref playback.IdleRef, videoID string) {
	total, err := c.tl.TotalVideoCount(ctx, ref.PlaylistID)
	if err != nil {
		logging.Warn().Err(err).Str("display_code", ref.Code).Msg("refill: load playlist video count failed")
		return
	}
	if err := c.tl.RefillIfNeeded(ctx, ref.Code, ref.PlaylistID, ref.TimelinePosition, total); err != nil {
		logging.Warn().Err(err).Str("display_code", ref.Code).Msg("refill: materialize failed")
		return
	}
	if _, err := c.m.Play(ctx, ref.Code); err != nil {
		if errs.KindOf(err) != errs.KindConflict {
			logging.Warn().Err(err).Str("display_code", ref.Code).Msg("refill: resume play failed")
		}
		return
	}
	logging.Info().Str("display_code", ref.Code).Str("video_id", videoID).Msg("resumed idle display after video ingested")
}

func (c *Consumer) String() string { return "refill-consumer" }
