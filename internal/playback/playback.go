// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package playback implements the Playback State Machine (spec §4.5):
// per-Display idle/playing/paused transitions, FIFO command delivery,
// and the videoEnded/next advancement logic that drives the Timeline
// Manager's refill checks.
package playback

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/tomtom215/playlistd/internal/database"
	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/models"
	"github.com/tomtom215/playlistd/internal/timeline"
)

// Event is a state transition observation the Realtime Hub broadcasts
// as a stateDelta (spec §4.6).
type Event struct {
	DisplayCode   string
	Display       models.Display
	Command       *models.Command
	PlaylistEmpty bool
	VideoProgress *float64
	BlockProgress *float64
}

// Sink receives Events for fan-out; the Realtime Hub implements this.
type Sink interface {
	Publish(Event)
}

type noopSink struct{}

func (noopSink) Publish(Event) {}

// keyedMutex serializes per-Display state mutations (spec §5: "all
// state mutations are serialized ... under a per-display lock").
type keyedMutex struct {
	mu   sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// pendingCommand is a FIFO-enqueued Command awaiting delivery over the
// Realtime Hub. Commands are not persisted (spec §6.4 omits a commands
// table); they live only as long as the process.
type pendingCommand struct {
	models.Command
	enqueuedAt time.Time
}

// StalenessWindow is the maximum age of a pending command, and the
// maximum heartbeat gap, before a Display is considered offline
// (spec §4.5, §5: "10 s staleness drop").
const StalenessWindow = 10 * time.Second

// Machine owns Display rows and drives their state transitions.
type Machine struct {
	db   *database.DB
	tl   *timeline.Manager
	sink Sink

	locks *keyedMutex

	queueMu sync.Mutex
	queues  map[string][]pendingCommand
}

// New creates a Playback State Machine over the given database and
// Timeline Manager. sink may be nil, in which case Events are dropped.
func New(db *database.DB, tl *timeline.Manager, sink Sink) *Machine {
	if sink == nil {
		sink = noopSink{}
	}
	return &Machine{
		db:     db,
		tl:     tl,
		sink:   sink,
		locks:  newKeyedMutex(),
		queues: make(map[string][]pendingCommand),
	}
}

// SetSink rewires the Machine's Event sink after construction, needed
// because the Realtime Hub itself takes a *Machine at construction time.
func (m *Machine) SetSink(sink Sink) {
	if sink == nil {
		sink = noopSink{}
	}
	m.sink = sink
}

// CreateDisplay registers a new Display. Returns errs.ErrDisplayCodeTaken
// if the code is already in use (spec §6.1).
func (m *Machine) CreateDisplay(ctx context.Context, code, name string) (*models.Display, error) {
	d := &models.Display{
		Code:          code,
		Name:          name,
		PlaybackState: models.PlaybackIdle,
		LastPing:      time.Now().UTC(),
		CreatedAt:     time.Now().UTC(),
	}
	_, err := m.db.Conn().ExecContext(ctx, `
		INSERT INTO displays (code, name, playback_state, timeline_position, last_ping, muted, created_at)
		VALUES (?, ?, ?, 0, ?, false, ?)
	`, d.Code, d.Name, d.PlaybackState, d.LastPing, d.CreatedAt)
	if err != nil {
		return nil, errs.Wrap(errs.KindConflict, "display code already exists", errs.ErrDisplayCodeTaken)
	}
	return d, nil
}

// GetDisplay loads a Display by code.
func (m *Machine) GetDisplay(ctx context.Context, code string) (*models.Display, error) {
	return m.loadDisplay(ctx, m.db.Conn(), code)
}

func (m *Machine) loadDisplay(ctx context.Context, q querier, code string) (*models.Display, error) {
	var d models.Display
	err := q.QueryRowContext(ctx, `
		SELECT code, name, playback_state, current_playlist_id, current_video_id, current_block_id,
		       timeline_position, last_ping, muted, created_at
		FROM displays WHERE code = ?
	`, code).Scan(&d.Code, &d.Name, &d.PlaybackState, &d.CurrentPlaylistID, &d.CurrentVideoID, &d.CurrentBlockID,
		&d.TimelinePosition, &d.LastPing, &d.Muted, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.New(errs.KindNotFound, "display not found: "+code)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "load display", err)
	}
	return &d, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DeleteDisplay hard-deletes a Display and cascades its Playlists,
// Blocks, TimelineEntries, and VideoHistory (spec §6.1).
func (m *Machine) DeleteDisplay(ctx context.Context, code string) error {
	unlock := m.locks.lock(code)
	defer unlock()

	tx, err := m.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "begin delete display tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM video_history WHERE display_code = ?`, code); err != nil {
		return errs.Wrap(errs.KindTransient, "cascade delete video history", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM timeline_entries WHERE display_code = ?`, code); err != nil {
		return errs.Wrap(errs.KindTransient, "cascade delete timeline entries", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM blocks WHERE playlist_id IN (SELECT id FROM playlists WHERE display_code = ?)
	`, code); err != nil {
		return errs.Wrap(errs.KindTransient, "cascade delete blocks", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE display_code = ?`, code); err != nil {
		return errs.Wrap(errs.KindTransient, "cascade delete playlists", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM displays WHERE code = ?`, code); err != nil {
		return errs.Wrap(errs.KindTransient, "delete display", err)
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindTransient, "commit delete display tx", err)
	}

	m.queueMu.Lock()
	delete(m.queues, code)
	m.queueMu.Unlock()
	return nil
}

// Heartbeat records liveness and an optional video-progress fraction.
// Progress is view-only: it is merged into the broadcast Event but
// never persisted and never advances timeline_position (spec §9).
func (m *Machine) Heartbeat(ctx context.Context, code string, videoProgress *float64) error {
	unlock := m.locks.lock(code)
	defer unlock()

	if _, err := m.db.Conn().ExecContext(ctx, `UPDATE displays SET last_ping = ? WHERE code = ?`, time.Now().UTC(), code); err != nil {
		return errs.Wrap(errs.KindTransient, "record heartbeat", err)
	}
	d, err := m.GetDisplay(ctx, code)
	if err != nil {
		return err
	}

	var blockProgress *float64
	if d.CurrentPlaylistID != nil && videoProgress != nil {
		bp, err := m.tl.CurrentBlockProgress(ctx, *d, *d.CurrentPlaylistID, *videoProgress)
		if err != nil {
			return err
		}
		if bp != nil {
			pct := bp.ProgressPercent
			blockProgress = &pct
		}
	}

	m.sink.Publish(Event{DisplayCode: code, Display: *d, VideoProgress: videoProgress, BlockProgress: blockProgress})
	return nil
}

// IsOnline reports liveness using the configured staleness window.
func (m *Machine) IsOnline(d models.Display) bool {
	return d.IsOnline(time.Now().UTC(), StalenessWindow)
}
