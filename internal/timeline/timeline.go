// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package timeline implements the Timeline Manager (spec §4.4): it
// turns an active Playlist into an ordered, deduplicated,
// format-compliant sequence of TimelineEntries and keeps that sequence
// populated ahead of the current playback position.
package timeline

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/playlistd/internal/cache"
	"github.com/tomtom215/playlistd/internal/database"
	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/index"
	"github.com/tomtom215/playlistd/internal/logging"
	"github.com/tomtom215/playlistd/internal/metrics"
	"github.com/tomtom215/playlistd/internal/models"
)

// searchCacheTTL bounds how long a single Materialize pass's Content
// Index candidate lookups stay cached; it only needs to outlive one
// pass, not survive between them.
//
// LFU (not plain TTL) because block search terms are reused heavily
// within a single pass: a recurring block type ("daily wide clips")
// may appear dozens of times across a long Playlist, all sharing the
// same term/sort/format key.
const (
	searchCacheTTL      = time.Minute
	searchCacheCapacity = 512
)

// candidateBuffer is added to the number of still-needed slots when
// querying the Content Index, so a few Videos can be skipped for
// cross-block dedup without an extra round trip.
const candidateBuffer = 4

// LowWatermark is the default number of queued entries that must
// remain ahead of timeline_position before a refill is triggered
// (spec §4.4: min(8, total video_count), computed per-call).
const LowWatermark = 8

// Manager owns the timeline_entries and video_history tables.
type Manager struct {
	db  *database.DB
	idx *index.Index
}

// New creates a Timeline Manager over the given database and Content
// Index.
func New(db *database.DB, idx *index.Index) *Manager {
	return &Manager{db: db, idx: idx}
}

type blockRow struct {
	models.Block
	PlaylistID string
}

// loadBlocks fetches every Block for a Playlist, in block_order.
func (m *Manager) loadBlocks(ctx context.Context, playlistID string) ([]blockRow, error) {
	rows, err := m.db.Conn().QueryContext(ctx, `
		SELECT id, playlist_id, block_order, search_term, video_count, format, fetch_mode, times_played
		FROM blocks WHERE playlist_id = ? ORDER BY block_order
	`, playlistID)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "load blocks", err)
	}
	defer rows.Close()

	var out []blockRow
	for rows.Next() {
		var b blockRow
		if err := rows.Scan(&b.ID, &b.PlaylistID, &b.BlockOrder, &b.SearchTerm, &b.VideoCount, &b.Format, &b.FetchMode, &b.TimesPlayed); err != nil {
			return nil, errs.Wrap(errs.KindTransient, "scan block", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// queuedVideoIDs returns the set of Video ids already present in any
// TimelineEntry for (displayCode, playlistID), used for cross-block
// dedup (invariant I1).
func (m *Manager) queuedVideoIDs(ctx context.Context, displayCode, playlistID string) (map[string]bool, error) {
	rows, err := m.db.Conn().QueryContext(ctx, `
		SELECT video_id FROM timeline_entries WHERE display_code = ? AND playlist_id = ?
	`, displayCode, playlistID)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "load queued video ids", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Wrap(errs.KindTransient, "scan queued video id", err)
		}
		seen[id] = true
	}
	return seen, rows.Err()
}

// playedVideoIDs returns Video ids ever played for a Block (E in the
// materialize algorithm, spec §4.4).
func (m *Manager) playedVideoIDs(ctx context.Context, blockID string) (map[string]bool, error) {
	rows, err := m.db.Conn().QueryContext(ctx, `SELECT video_id FROM video_history WHERE block_id = ?`, blockID)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "load played video ids", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Wrap(errs.KindTransient, "scan played video id", err)
		}
		seen[id] = true
	}
	return seen, rows.Err()
}

// queuedVideoIDsForBlock returns Video ids currently queued for a
// specific Block in its current loop_iteration (Q in the materialize
// algorithm, spec §4.4).
func (m *Manager) queuedCountAndIDsForBlock(ctx context.Context, blockID string, loopIteration int) (int, map[string]bool, error) {
	rows, err := m.db.Conn().QueryContext(ctx, `
		SELECT video_id FROM timeline_entries WHERE block_id = ? AND loop_iteration = ? AND status != 'skipped'
	`, blockID, loopIteration)
	if err != nil {
		return 0, nil, errs.Wrap(errs.KindTransient, "load queued ids for block", err)
	}
	defer rows.Close()

	ids := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, nil, errs.Wrap(errs.KindTransient, "scan queued id for block", err)
		}
		ids[id] = true
	}
	return len(ids), ids, rows.Err()
}

func (m *Manager) maxTimelinePosition(ctx context.Context, displayCode, playlistID string) (int, error) {
	var max sql.NullInt64
	err := m.db.Conn().QueryRowContext(ctx, `
		SELECT MAX(timeline_position) FROM timeline_entries WHERE display_code = ? AND playlist_id = ?
	`, displayCode, playlistID).Scan(&max)
	if err != nil {
		return -1, errs.Wrap(errs.KindTransient, "max timeline position", err)
	}
	if !max.Valid {
		return -1, nil
	}
	return int(max.Int64), nil
}

// Materialize fills every Block of a Display's active Playlist up to
// its video_count, deduplicating within the Playlist (I1), respecting
// Block.format (I4), and running exhaustion recovery when the Content
// Index cannot supply enough fresh candidates (spec §4.4).
func (m *Manager) Materialize(ctx context.Context, displayCode, playlistID string) error {
	start := time.Now()
	defer func() { metrics.TimelineMaterializeDuration.Observe(time.Since(start).Seconds()) }()

	blocks, err := m.loadBlocks(ctx, playlistID)
	if err != nil {
		return err
	}

	globalSeen, err := m.queuedVideoIDs(ctx, displayCode, playlistID)
	if err != nil {
		return err
	}

	nextPosition, err := m.maxTimelinePosition(ctx, displayCode, playlistID)
	if err != nil {
		return err
	}
	nextPosition++

	// Scoped to this one pass (spec §4.8): Blocks sharing a search term,
	// format, and sort skip a repeat DuckDB round trip.
	searchCache := cache.NewLFU(searchCacheCapacity, searchCacheTTL)

	for _, b := range blocks {
		if err := m.materializeBlock(ctx, displayCode, b, globalSeen, &nextPosition, searchCache); err != nil {
			return errs.Wrap(errs.KindFatal, fmt.Sprintf("materialize failed for block %s", b.ID), err)
		}
	}
	return nil
}

// searchVideosCached serves SearchVideos results out of c when an
// identical (term, limit, sort, format, exclude set) lookup has
// already run in this Materialize pass.
func (m *Manager) searchVideosCached(ctx context.Context, c cache.Cacher, term string, limit int, sortMode models.FetchMode, format models.Format, exclude []string) ([]models.Video, error) {
	key := searchCacheKey(term, limit, sortMode, format, exclude)
	if cached, ok := c.Get(key); ok {
		return cached.([]models.Video), nil
	}
	videos, err := m.idx.SearchVideos(ctx, term, limit, sortMode, format, exclude)
	if err != nil {
		return nil, err
	}
	c.Set(key, videos)
	return videos, nil
}

func searchCacheKey(term string, limit int, sortMode models.FetchMode, format models.Format, exclude []string) string {
	sorted := make([]string, len(exclude))
	copy(sorted, exclude)
	sort.Strings(sorted)
	var sb strings.Builder
	sb.WriteString(term)
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(limit))
	sb.WriteByte('|')
	sb.WriteString(string(sortMode))
	sb.WriteByte('|')
	sb.WriteString(string(format))
	sb.WriteByte('|')
	sb.WriteString(strings.Join(sorted, ","))
	return sb.String()
}

func (m *Manager) materializeBlock(ctx context.Context, displayCode string, b blockRow, globalSeen map[string]bool, nextPosition *int, searchCache cache.Cacher) error {
	loopIteration := b.TimesPlayed
	queuedCount, queuedIDs, err := m.queuedCountAndIDsForBlock(ctx, b.ID, loopIteration)
	if err != nil {
		return err
	}

	needed := b.VideoCount - queuedCount
	if needed <= 0 {
		return nil
	}

	played, err := m.playedVideoIDs(ctx, b.ID)
	if err != nil {
		return err
	}

	exclude := make([]string, 0, len(played)+len(queuedIDs)+len(globalSeen))
	for id := range played {
		exclude = append(exclude, id)
	}
	for id := range queuedIDs {
		exclude = append(exclude, id)
	}
	for id := range globalSeen {
		exclude = append(exclude, id)
	}

	candidates, err := m.searchVideosCached(ctx, searchCache, b.SearchTerm, needed+candidateBuffer, b.FetchMode, b.Format, exclude)
	if err != nil {
		return err
	}

	if len(candidates) < needed {
		recovered, err := m.recoverExhaustion(ctx, displayCode, b.SearchTerm, b.PlaylistID)
		if err != nil {
			return err
		}
		if recovered {
			// Bypass the cache: recovery just cleared video_history, so a
			// cached miss from moments ago would be stale.
			candidates, err = m.idx.SearchVideos(ctx, b.SearchTerm, needed+candidateBuffer, b.FetchMode, b.Format, exclude)
			if err != nil {
				return err
			}
		}
	}

	if len(candidates) > needed {
		candidates = candidates[:needed]
	}
	if len(candidates) == 0 {
		return nil
	}

	tx, err := m.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "begin materialize block tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	blockPosition := queuedCount
	for _, v := range candidates {
		entry := models.TimelineEntry{
			ID:               uuid.NewString(),
			DisplayCode:      displayCode,
			PlaylistID:       b.PlaylistID,
			BlockID:          b.ID,
			VideoID:          v.ID,
			TimelinePosition: *nextPosition,
			Status:           models.EntryQueued,
			BlockPosition:    blockPosition,
			LoopIteration:    loopIteration,
			CreatedAt:        time.Now().UTC(),
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO timeline_entries (id, display_code, playlist_id, block_id, video_id, timeline_position, status, block_position, loop_iteration, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, entry.ID, entry.DisplayCode, entry.PlaylistID, entry.BlockID, entry.VideoID, entry.TimelinePosition, entry.Status, entry.BlockPosition, entry.LoopIteration, entry.CreatedAt); err != nil {
			return errs.Wrap(errs.KindTransient, "insert timeline entry", err)
		}
		globalSeen[v.ID] = true
		*nextPosition++
		blockPosition++
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindTransient, "commit materialize block tx", err)
	}
	return nil
}

// recoverExhaustion implements the per-search-term-group exhaustion
// recovery described in spec §4.4 and §9: blocks sharing a search_term
// within a Playlist pool their totals; when total-used >= total-needed
// across the group, all VideoHistory and queued entries for the group
// are cleared so the Playlist can loop without repeats. Returns true
// if recovery ran.
func (m *Manager) recoverExhaustion(ctx context.Context, displayCode, searchTerm, playlistID string) (bool, error) {
	rows, err := m.db.Conn().QueryContext(ctx, `
		SELECT id, video_count FROM blocks WHERE playlist_id = ? AND search_term = ?
	`, playlistID, searchTerm)
	if err != nil {
		return false, errs.Wrap(errs.KindTransient, "load block group for exhaustion check", err)
	}
	var blockIDs []string
	totalNeeded := 0
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			rows.Close()
			return false, errs.Wrap(errs.KindTransient, "scan block group row", err)
		}
		blockIDs = append(blockIDs, id)
		totalNeeded += count
	}
	rows.Close()
	if len(blockIDs) == 0 {
		return false, nil
	}

	totalUsed := 0
	for _, id := range blockIDs {
		var historyCount, queuedCount int
		if err := m.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM video_history WHERE block_id = ?`, id).Scan(&historyCount); err != nil {
			return false, errs.Wrap(errs.KindTransient, "count video history for exhaustion check", err)
		}
		if err := m.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM timeline_entries WHERE block_id = ? AND status = 'queued'`, id).Scan(&queuedCount); err != nil {
			return false, errs.Wrap(errs.KindTransient, "count queued entries for exhaustion check", err)
		}
		totalUsed += historyCount + queuedCount
	}

	if totalUsed < totalNeeded {
		return false, nil
	}

	tx, err := m.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return false, errs.Wrap(errs.KindTransient, "begin exhaustion recovery tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range blockIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM video_history WHERE block_id = ?`, id); err != nil {
			return false, errs.Wrap(errs.KindTransient, "clear video history in exhaustion recovery", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM timeline_entries WHERE block_id = ? AND status = 'queued'`, id); err != nil {
			return false, errs.Wrap(errs.KindTransient, "clear queued entries in exhaustion recovery", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, errs.Wrap(errs.KindTransient, "commit exhaustion recovery tx", err)
	}

	logging.Info().Str("display_code", displayCode).Str("search_term", searchTerm).Int("total_needed", totalNeeded).Msg("exhaustion recovery triggered")
	return true, nil
}

// QueuedAhead counts live (queued) entries at or after position for a
// Display's active Playlist, used to decide whether a refill is due
// (spec §4.4).
func (m *Manager) QueuedAhead(ctx context.Context, displayCode, playlistID string, position int) (int, error) {
	var count int
	err := m.db.Conn().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM timeline_entries
		WHERE display_code = ? AND playlist_id = ? AND status = 'queued' AND timeline_position >= ?
	`, displayCode, playlistID, position).Scan(&count)
	if err != nil {
		return 0, errs.Wrap(errs.KindTransient, "count queued ahead", err)
	}
	return count, nil
}

// RefillIfNeeded invokes Materialize when fewer than the low watermark
// of entries remain ahead of position (spec §4.4).
func (m *Manager) RefillIfNeeded(ctx context.Context, displayCode, playlistID string, position int, totalVideoCount int) error {
	watermark := LowWatermark
	if totalVideoCount < watermark {
		watermark = totalVideoCount
	}
	ahead, err := m.QueuedAhead(ctx, displayCode, playlistID, position)
	if err != nil {
		return err
	}
	metrics.TimelineQueuedEntries.WithLabelValues(displayCode).Set(float64(ahead))
	if ahead < watermark {
		return m.Materialize(ctx, displayCode, playlistID)
	}
	return nil
}

// NextEntry returns the queued TimelineEntry at or after position with
// the lowest timeline_position, or errs.ErrNoQueuedEntry if none exists.
func (m *Manager) NextEntry(ctx context.Context, displayCode, playlistID string, position int) (*models.TimelineEntry, error) {
	var e models.TimelineEntry
	err := m.db.Conn().QueryRowContext(ctx, `
		SELECT id, display_code, playlist_id, block_id, video_id, timeline_position, status, block_position, loop_iteration, created_at
		FROM timeline_entries
		WHERE display_code = ? AND playlist_id = ? AND status = 'queued' AND timeline_position >= ?
		ORDER BY timeline_position ASC LIMIT 1
	`, displayCode, playlistID, position).Scan(&e.ID, &e.DisplayCode, &e.PlaylistID, &e.BlockID, &e.VideoID, &e.TimelinePosition, &e.Status, &e.BlockPosition, &e.LoopIteration, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNoQueuedEntry
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "query next entry", err)
	}
	return &e, nil
}

// MarkPlayed sets an entry's status to played and appends a
// VideoHistory row (spec §4.5: "append VideoHistory on played").
func (m *Manager) MarkPlayed(ctx context.Context, entry models.TimelineEntry) error {
	tx, err := m.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "begin mark played tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE timeline_entries SET status = 'played' WHERE id = ?`, entry.ID); err != nil {
		return errs.Wrap(errs.KindTransient, "mark entry played", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO video_history (id, display_code, block_id, video_id, played_at) VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), entry.DisplayCode, entry.BlockID, entry.VideoID, time.Now().UTC()); err != nil {
		return errs.Wrap(errs.KindTransient, "insert video history", err)
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindTransient, "commit mark played tx", err)
	}
	return nil
}

// MarkSkipped sets an entry's status to skipped without appending a
// VideoHistory row (spec §4.5: `next` marks skipped, not played).
func (m *Manager) MarkSkipped(ctx context.Context, entryID string) error {
	if _, err := m.db.Conn().ExecContext(ctx, `UPDATE timeline_entries SET status = 'skipped' WHERE id = ?`, entryID); err != nil {
		return errs.Wrap(errs.KindTransient, "mark entry skipped", err)
	}
	return nil
}

// IncrementBlockPlays bumps Block.times_played at a loop boundary
// (spec §4.5).
func (m *Manager) IncrementBlockPlays(ctx context.Context, blockID string) error {
	if _, err := m.db.Conn().ExecContext(ctx, `
		UPDATE blocks SET times_played = times_played + 1, last_played_at = ? WHERE id = ?
	`, time.Now().UTC(), blockID); err != nil {
		return errs.Wrap(errs.KindTransient, "increment block times_played", err)
	}
	return nil
}

// ResetTimeline deletes all TimelineEntries and VideoHistory for a
// Display's active Playlist and zeroes Block.times_played (spec §4.4).
// The caller must have already verified the Display is idle.
func (m *Manager) ResetTimeline(ctx context.Context, displayCode, playlistID string) error {
	tx, err := m.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "begin reset timeline tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM timeline_entries WHERE display_code = ? AND playlist_id = ?`, displayCode, playlistID); err != nil {
		return errs.Wrap(errs.KindTransient, "delete timeline entries on reset", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM video_history WHERE display_code = ? AND block_id IN (SELECT id FROM blocks WHERE playlist_id = ?)
	`, displayCode, playlistID); err != nil {
		return errs.Wrap(errs.KindTransient, "delete video history on reset", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE blocks SET times_played = 0, last_played_at = NULL WHERE playlist_id = ?`, playlistID); err != nil {
		return errs.Wrap(errs.KindTransient, "zero block times_played on reset", err)
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindTransient, "commit reset timeline tx", err)
	}
	return nil
}

// TotalVideoCount sums video_count across a Playlist's Blocks, used
// to compute the refill low watermark (spec §4.4).
func (m *Manager) TotalVideoCount(ctx context.Context, playlistID string) (int, error) {
	var total sql.NullInt64
	err := m.db.Conn().QueryRowContext(ctx, `SELECT SUM(video_count) FROM blocks WHERE playlist_id = ?`, playlistID).Scan(&total)
	if err != nil {
		return 0, errs.Wrap(errs.KindTransient, "sum block video_count", err)
	}
	return int(total.Int64), nil
}
