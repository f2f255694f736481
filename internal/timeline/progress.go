// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package timeline

import (
	"context"
	"database/sql"

	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/models"
)

// BlockProgress reports how far a Display has advanced through its
// current Block (spec §6.1: GET /timeline/{code} "currentBlock").
type BlockProgress struct {
	BlockID         string
	SearchTerm      string
	CurrentVideoID  string
	BlockPosition   int
	TotalVideos     int
	ProgressPercent float64
}

// OverallProgress reports a Display's position within the active
// Playlist's current loop (spec §6.1: GET /timeline/{code} "overall").
type OverallProgress struct {
	CurrentPosition    int
	TotalInCurrentLoop int
	LoopCount          int
}

// Progress is the composed response for GET /timeline/{code}.
type Progress struct {
	CurrentBlock *BlockProgress
	Overall      OverallProgress
}

// Progress computes a Display's current-block and overall progress
// for its active Playlist (spec §6.1). d is the caller's already-loaded
// Display; it is not re-fetched here. videoFraction is the caller's
// best-known sub-video progress (0 when none is known, as from a bare
// GET with no live heartbeat fraction to fold in).
func (m *Manager) Progress(ctx context.Context, playlistID string, d models.Display, videoFraction float64) (Progress, error) {
	var p Progress

	total, err := m.TotalVideoCount(ctx, playlistID)
	if err != nil {
		return p, err
	}
	var loopCount int
	if err := m.db.Conn().QueryRowContext(ctx, `SELECT loop_count FROM playlists WHERE id = ?`, playlistID).Scan(&loopCount); err != nil {
		return p, errs.Wrap(errs.KindTransient, "load playlist loop_count", err)
	}
	p.Overall = OverallProgress{
		CurrentPosition:    d.TimelinePosition,
		TotalInCurrentLoop: total,
		LoopCount:          loopCount,
	}

	bp, err := m.CurrentBlockProgress(ctx, d, playlistID, videoFraction)
	if err != nil {
		return p, err
	}
	p.CurrentBlock = bp
	return p, nil
}

// CurrentBlockProgress reports how far a Display has advanced through
// its current Block, folding in videoFraction per the 0-based formula
// of spec §4.5: ((currentVideoInBlock-1) + videoFraction) / totalVideos,
// i.e. (BlockPosition + videoFraction) / totalVideos since BlockPosition
// is already 0-based. Returns nil if the Display has no current Block.
func (m *Manager) CurrentBlockProgress(ctx context.Context, d models.Display, playlistID string, videoFraction float64) (*BlockProgress, error) {
	if d.CurrentBlockID == nil {
		return nil, nil
	}

	var bp BlockProgress
	bp.BlockID = *d.CurrentBlockID
	if err := m.db.Conn().QueryRowContext(ctx, `
		SELECT search_term, video_count FROM blocks WHERE id = ?
	`, *d.CurrentBlockID).Scan(&bp.SearchTerm, &bp.TotalVideos); err != nil {
		return nil, errs.Wrap(errs.KindTransient, "load current block", err)
	}

	var blockPosition sql.NullInt64
	if err := m.db.Conn().QueryRowContext(ctx, `
		SELECT block_position FROM timeline_entries
		WHERE display_code = ? AND playlist_id = ? AND timeline_position = ?
	`, d.Code, playlistID, d.TimelinePosition).Scan(&blockPosition); err != nil && err != sql.ErrNoRows {
		return nil, errs.Wrap(errs.KindTransient, "load current entry block_position", err)
	}
	bp.BlockPosition = int(blockPosition.Int64)
	if d.CurrentVideoID != nil {
		bp.CurrentVideoID = *d.CurrentVideoID
	}
	if bp.TotalVideos > 0 {
		bp.ProgressPercent = (float64(bp.BlockPosition) + videoFraction) / float64(bp.TotalVideos) * 100
	}
	return &bp, nil
}

// QueuedVideos returns the queued TimelineEntries at or after position
// for a Display's active Playlist, in playback order (spec §6.1:
// GET /timeline/{code} "queuedVideos").
func (m *Manager) QueuedVideos(ctx context.Context, displayCode, playlistID string, position int) ([]models.TimelineEntry, error) {
	rows, err := m.db.Conn().QueryContext(ctx, `
		SELECT id, display_code, playlist_id, block_id, video_id, timeline_position, status, block_position, loop_iteration, created_at
		FROM timeline_entries
		WHERE display_code = ? AND playlist_id = ? AND status = 'queued' AND timeline_position >= ?
		ORDER BY timeline_position ASC
	`, displayCode, playlistID, position)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "list queued videos", err)
	}
	defer rows.Close()

	var out []models.TimelineEntry
	for rows.Next() {
		var e models.TimelineEntry
		if err := rows.Scan(&e.ID, &e.DisplayCode, &e.PlaylistID, &e.BlockID, &e.VideoID, &e.TimelinePosition, &e.Status, &e.BlockPosition, &e.LoopIteration, &e.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.KindTransient, "scan queued video", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
