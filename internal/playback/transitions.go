// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package playback

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/models"
)

// maxRecentCommands bounds the per-display command history kept for
// diagnostics; it is not a durability guarantee (spec §6.4 has no
// commands table).
const maxRecentCommands = 20

func (m *Machine) activePlaylistID(ctx context.Context, code string) (string, error) {
	var id string
	err := m.db.Conn().QueryRowContext(ctx, `
		SELECT id FROM playlists WHERE display_code = ? AND is_active = true
	`, code).Scan(&id)
	if err == sql.ErrNoRows {
		return "", errs.ErrNoActivePlaylist
	}
	if err != nil {
		return "", errs.Wrap(errs.KindTransient, "lookup active playlist", err)
	}
	return id, nil
}

// ActivePlaylistID resolves the active Playlist id for a Display code,
// for callers outside this package (the timeline endpoint, the ingest
// fan-out consumer) that need it independently of CurrentPlaylistID,
// which is only set while a Display is actively playing.
func (m *Machine) ActivePlaylistID(ctx context.Context, code string) (string, error) {
	return m.activePlaylistID(ctx, code)
}

// IdleRef names an idle Display with an active Playlist, a candidate
// for the ingest fan-out consumer to refill and resume.
type IdleRef struct {
	Code             string
	PlaylistID       string
	TimelinePosition int
}

// IdleDisplaysWithActivePlaylist lists every idle Display that has an
// active Playlist, so a freshly ingested Video has somewhere to land
// (spec §4.2/§4.4: "Scanner -> Content Index -> Timeline Manager"
// fan-out; otherwise a Display that went idle on playlistEmpty never
// notices new content until some other event advances it).
func (m *Machine) IdleDisplaysWithActivePlaylist(ctx context.Context) ([]IdleRef, error) {
	rows, err := m.db.Conn().QueryContext(ctx, `
		SELECT d.code, p.id, d.timeline_position FROM displays d
		JOIN playlists p ON p.display_code = d.code AND p.is_active = true
		WHERE d.playback_state = 'idle'
	`)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "list idle displays with active playlist", err)
	}
	defer rows.Close()

	var out []IdleRef
	for rows.Next() {
		var ref IdleRef
		if err := rows.Scan(&ref.Code, &ref.PlaylistID, &ref.TimelinePosition); err != nil {
			return nil, errs.Wrap(errs.KindTransient, "scan idle display ref", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (m *Machine) persistDisplay(ctx context.Context, d *models.Display) error {
	_, err := m.db.Conn().ExecContext(ctx, `
		UPDATE displays SET playback_state = ?, current_playlist_id = ?, current_video_id = ?,
		       current_block_id = ?, timeline_position = ?, muted = ?
		WHERE code = ?
	`, d.PlaybackState, d.CurrentPlaylistID, d.CurrentVideoID, d.CurrentBlockID, d.TimelinePosition, d.Muted, d.Code)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "persist display", err)
	}
	return nil
}

func strPtr(s string) *string { return &s }

// Play transitions idle→playing (resolving the first queued entry at
// or after timeline_position) or paused→playing. A no-op if already
// playing (spec §4.5).
func (m *Machine) Play(ctx context.Context, code string) (*models.Display, error) {
	unlock := m.locks.lock(code)
	defer unlock()

	d, err := m.GetDisplay(ctx, code)
	if err != nil {
		return nil, err
	}

	switch d.PlaybackState {
	case models.PlaybackPlaying:
		return d, nil
	case models.PlaybackPaused:
		d.PlaybackState = models.PlaybackPlaying
	case models.PlaybackIdle:
		playlistID, err := m.activePlaylistID(ctx, code)
		if err != nil {
			return nil, err
		}
		entry, err := m.tl.NextEntry(ctx, code, playlistID, d.TimelinePosition)
		if err != nil {
			return nil, errs.Wrap(errs.KindConflict, "no queued entry to start playback", err)
		}
		d.PlaybackState = models.PlaybackPlaying
		d.CurrentPlaylistID = strPtr(playlistID)
		d.CurrentVideoID = strPtr(entry.VideoID)
		d.CurrentBlockID = strPtr(entry.BlockID)
	}

	if err := m.persistDisplay(ctx, d); err != nil {
		return nil, err
	}
	m.sink.Publish(Event{DisplayCode: code, Display: *d})
	return d, nil
}

// Pause transitions playing→paused. A no-op if already paused; a
// Conflict if the Display is idle (spec §4.5).
func (m *Machine) Pause(ctx context.Context, code string) (*models.Display, error) {
	unlock := m.locks.lock(code)
	defer unlock()

	d, err := m.GetDisplay(ctx, code)
	if err != nil {
		return nil, err
	}
	switch d.PlaybackState {
	case models.PlaybackPaused:
		return d, nil
	case models.PlaybackIdle:
		return nil, errs.New(errs.KindConflict, "cannot pause an idle display")
	}

	d.PlaybackState = models.PlaybackPaused
	if err := m.persistDisplay(ctx, d); err != nil {
		return nil, err
	}
	m.sink.Publish(Event{DisplayCode: code, Display: *d})
	return d, nil
}

// Stop transitions any state to idle and resets the Display's timeline
// (spec §4.5).
func (m *Machine) Stop(ctx context.Context, code string) (*models.Display, error) {
	unlock := m.locks.lock(code)
	defer unlock()

	d, err := m.GetDisplay(ctx, code)
	if err != nil {
		return nil, err
	}

	playlistID := ""
	if d.CurrentPlaylistID != nil {
		playlistID = *d.CurrentPlaylistID
	} else if pid, err := m.activePlaylistID(ctx, code); err == nil {
		playlistID = pid
	}

	d.PlaybackState = models.PlaybackIdle
	d.CurrentPlaylistID = nil
	d.CurrentVideoID = nil
	d.CurrentBlockID = nil
	d.TimelinePosition = 0

	if playlistID != "" {
		if err := m.tl.ResetTimeline(ctx, code, playlistID); err != nil {
			return nil, err
		}
	}
	if err := m.persistDisplay(ctx, d); err != nil {
		return nil, err
	}
	m.sink.Publish(Event{DisplayCode: code, Display: *d})
	return d, nil
}

// SetMuted applies a mute flag. Idempotent: applying the same value
// twice is indistinguishable from applying it once (P6).
func (m *Machine) SetMuted(ctx context.Context, code string, muted bool) (*models.Display, error) {
	unlock := m.locks.lock(code)
	defer unlock()

	d, err := m.GetDisplay(ctx, code)
	if err != nil {
		return nil, err
	}
	d.Muted = muted
	if err := m.persistDisplay(ctx, d); err != nil {
		return nil, err
	}
	m.sink.Publish(Event{DisplayCode: code, Display: *d})
	return d, nil
}

// advance is the shared videoEnded/next implementation: it marks the
// current entry (played or skipped), increments the owning Block's
// times_played at loop boundaries, advances timeline_position, and
// resolves the new current video (spec §4.5).
func (m *Machine) advance(ctx context.Context, code string, played bool) (*models.Display, error) {
	unlock := m.locks.lock(code)
	defer unlock()

	d, err := m.GetDisplay(ctx, code)
	if err != nil {
		return nil, err
	}
	if d.PlaybackState != models.PlaybackPlaying {
		return nil, errs.New(errs.KindConflict, "display is not playing")
	}
	if d.CurrentPlaylistID == nil {
		return nil, errs.ErrNoActivePlaylist
	}
	playlistID := *d.CurrentPlaylistID

	entry, err := m.currentEntry(ctx, code, playlistID, d.TimelinePosition)
	if err != nil {
		return nil, err
	}

	if played {
		if err := m.tl.MarkPlayed(ctx, models.TimelineEntry{
			ID:          entry.ID,
			DisplayCode: code,
			BlockID:     entry.BlockID,
			VideoID:     entry.VideoID,
		}); err != nil {
			return nil, err
		}
	} else {
		if err := m.tl.MarkSkipped(ctx, entry.ID); err != nil {
			return nil, err
		}
	}

	if loopBoundary, err := m.atLoopBoundary(ctx, entry.BlockID, entry.BlockPosition); err != nil {
		return nil, err
	} else if loopBoundary {
		if err := m.tl.IncrementBlockPlays(ctx, entry.BlockID); err != nil {
			return nil, err
		}
	}

	d.TimelinePosition++

	next, err := m.tl.NextEntry(ctx, code, playlistID, d.TimelinePosition)
	if err == errs.ErrNoQueuedEntry {
		if merr := m.tl.Materialize(ctx, code, playlistID); merr != nil {
			return nil, merr
		}
		next, err = m.tl.NextEntry(ctx, code, playlistID, d.TimelinePosition)
	}

	switch {
	case err == nil:
		d.CurrentVideoID = strPtr(next.VideoID)
		d.CurrentBlockID = strPtr(next.BlockID)
		if perr := m.persistDisplay(ctx, d); perr != nil {
			return nil, perr
		}
		total, terr := m.tl.TotalVideoCount(ctx, playlistID)
		if terr == nil {
			_ = m.tl.RefillIfNeeded(ctx, code, playlistID, d.TimelinePosition, total)
		}
		m.sink.Publish(Event{DisplayCode: code, Display: *d})
		return d, nil
	case err == errs.ErrNoQueuedEntry:
		d.PlaybackState = models.PlaybackIdle
		d.CurrentVideoID = nil
		d.CurrentBlockID = nil
		if perr := m.persistDisplay(ctx, d); perr != nil {
			return nil, perr
		}
		m.sink.Publish(Event{DisplayCode: code, Display: *d, PlaylistEmpty: true})
		return d, nil
	default:
		return nil, err
	}
}

// VideoEnded handles the client-reported completion of the current
// video: marks it played and advances (spec §4.5).
func (m *Machine) VideoEnded(ctx context.Context, code string) (*models.Display, error) {
	return m.advance(ctx, code, true)
}

// Next handles an admin-issued skip: marks the current entry skipped
// (not played) and advances (spec §4.5).
func (m *Machine) Next(ctx context.Context, code string) (*models.Display, error) {
	return m.advance(ctx, code, false)
}

func (m *Machine) currentEntry(ctx context.Context, code, playlistID string, position int) (*models.TimelineEntryRef, error) {
	var e models.TimelineEntryRef
	err := m.db.Conn().QueryRowContext(ctx, `
		SELECT id, block_id, video_id, block_position FROM timeline_entries
		WHERE display_code = ? AND playlist_id = ? AND timeline_position = ? AND status = 'queued'
	`, code, playlistID, position).Scan(&e.ID, &e.BlockID, &e.VideoID, &e.BlockPosition)
	if err == sql.ErrNoRows {
		return nil, errs.New(errs.KindInvariantViolation, "no queued entry at current timeline position")
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "load current entry", err)
	}
	return &e, nil
}

func (m *Machine) atLoopBoundary(ctx context.Context, blockID string, blockPosition int) (bool, error) {
	var videoCount int
	err := m.db.Conn().QueryRowContext(ctx, `SELECT video_count FROM blocks WHERE id = ?`, blockID).Scan(&videoCount)
	if err != nil {
		return false, errs.Wrap(errs.KindTransient, "load block video_count", err)
	}
	return blockPosition+1 >= videoCount, nil
}

// EnqueueCommand applies a command immediately under the Display's
// serialization lock, surfacing Undelivered when the Display has been
// offline beyond the staleness window (spec §4.5, §5).
func (m *Machine) EnqueueCommand(ctx context.Context, code string, cmdType models.CommandType, payload map[string]any) (*models.Command, error) {
	cmd := &models.Command{
		ID:          uuid.NewString(),
		DisplayCode: code,
		Type:        cmdType,
		Payload:     payload,
		EnqueuedAt:  time.Now().UTC(),
	}

	d, err := m.GetDisplay(ctx, code)
	if err != nil {
		return nil, err
	}
	if !m.IsOnline(*d) {
		cmd.Status = models.CommandStatusUndelivered
		cmd.Reason = errs.ErrUndelivered.Error()
		m.recordCommand(code, *cmd)
		return cmd, nil
	}

	var applyErr error
	switch cmdType {
	case models.CommandPlay:
		_, applyErr = m.Play(ctx, code)
	case models.CommandPause:
		_, applyErr = m.Pause(ctx, code)
	case models.CommandStop:
		_, applyErr = m.Stop(ctx, code)
	case models.CommandNext:
		_, applyErr = m.Next(ctx, code)
	case models.CommandSetMuted:
		muted, _ := payload["muted"].(bool)
		_, applyErr = m.SetMuted(ctx, code, muted)
	default:
		applyErr = errs.New(errs.KindBadInput, "unknown command type: "+string(cmdType))
	}

	if applyErr != nil {
		cmd.Status = models.CommandStatusFailed
		cmd.Reason = applyErr.Error()
		m.recordCommand(code, *cmd)
		return cmd, applyErr
	}

	cmd.Status = models.CommandStatusDelivered
	m.recordCommand(code, *cmd)
	m.sink.Publish(Event{DisplayCode: code, Command: cmd})
	return cmd, nil
}

func (m *Machine) recordCommand(code string, cmd models.Command) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	q := append(m.queues[code], pendingCommand{Command: cmd, enqueuedAt: cmd.EnqueuedAt})
	if len(q) > maxRecentCommands {
		q = q[len(q)-maxRecentCommands:]
	}
	m.queues[code] = q
}

// RecentCommands returns the bounded recent-command history for a
// Display, most-recent last.
func (m *Machine) RecentCommands(code string) []models.Command {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	out := make([]models.Command, len(m.queues[code]))
	for i, p := range m.queues[code] {
		out[i] = p.Command
	}
	return out
}
