// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package index implements the Content Index (spec §4.1): durable
// storage of Creators and Videos with keyword search and format
// filtering, backed by DuckDB.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/tomtom215/playlistd/internal/database"
	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/models"
)

// Index is the Content Index. It owns the creators, videos, and
// ingestion_stats tables.
type Index struct {
	db *database.DB
}

// New wraps an open database for use as a Content Index.
func New(db *database.DB) *Index {
	return &Index{db: db}
}

// UpsertCreator inserts a Creator on first sighting or updates its
// mutable counters on re-sighting (spec §3: "updated, not replaced").
func (ix *Index) UpsertCreator(ctx context.Context, c models.Creator) error {
	now := time.Now().UTC()
	_, err := ix.db.Conn().ExecContext(ctx, `
		INSERT INTO creators (id, username, profile_link, follower_count, post_count, verified, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			profile_link = excluded.profile_link,
			follower_count = excluded.follower_count,
			post_count = excluded.post_count,
			verified = excluded.verified,
			last_seen_at = excluded.last_seen_at
	`, c.ID, c.Username, c.ProfileLink, c.FollowerCount, c.PostCount, c.Verified, now, now)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "upsert creator", err)
	}
	return nil
}

// InsertVideo inserts a Video on first sighting. Returns
// errs.ErrDuplicate (not an error condition upstream, per spec §4.1)
// when the id already exists.
func (ix *Index) InsertVideo(ctx context.Context, v models.Video) error {
	res, err := ix.db.Conn().ExecContext(ctx, `
		INSERT INTO videos (
			id, creator_id, description, posted_at, permalink, media_url,
			encoding_source, encoding_md, encoding_thumbnail, encoding_gif,
			width, height, like_count, view_count, indexed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, v.ID, v.CreatorID, v.Description, v.PostedAt, v.Permalink, v.MediaURL,
		v.Encodings.Source, v.Encodings.MD, v.Encodings.Thumbnail, v.Encodings.GIF,
		nullableInt(v.Width), nullableInt(v.Height), v.LikeCount, v.ViewCount, time.Now().UTC())
	if err != nil {
		return errs.Wrap(errs.KindTransient, "insert video", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.KindTransient, "insert video rows affected", err)
	}
	if n == 0 {
		return errs.ErrDuplicate
	}
	return nil
}

func nullableInt(v int) any {
	if v <= 0 {
		return nil
	}
	return v
}

// tokens splits a search term into positive and negative substrings;
// a token prefixed "-" is negative (spec §4.1).
func tokens(term string) (positive, negative []string) {
	for _, tok := range strings.Fields(term) {
		tok = strings.ToLower(tok)
		if strings.HasPrefix(tok, "-") && len(tok) > 1 {
			negative = append(negative, tok[1:])
			continue
		}
		if tok != "" && tok != "-" {
			positive = append(positive, tok)
		}
	}
	return positive, negative
}

// SearchVideos returns videos matching term's positive/negative tokens
// and format filter, ordered per sort, excluding excludeIds, bounded
// to limit results (spec §4.1).
func (ix *Index) SearchVideos(ctx context.Context, term string, limit int, sort models.FetchMode, format models.Format, excludeIDs []string) ([]models.Video, error) {
	positive, negative := tokens(term)

	var sb strings.Builder
	args := []any{}
	sb.WriteString("SELECT id, creator_id, description, posted_at, permalink, media_url, encoding_source, encoding_md, encoding_thumbnail, encoding_gif, width, height, like_count, view_count, indexed_at FROM videos WHERE 1=1")

	for _, p := range positive {
		sb.WriteString(" AND lower(description) LIKE ?")
		args = append(args, "%"+p+"%")
	}
	for _, n := range negative {
		sb.WriteString(" AND lower(description) NOT LIKE ?")
		args = append(args, "%"+n+"%")
	}
	if format != models.FormatMixed && format != "" {
		switch format {
		case models.FormatWide:
			sb.WriteString(" AND width > height AND width IS NOT NULL AND height IS NOT NULL")
		case models.FormatTall:
			sb.WriteString(" AND height > width AND width IS NOT NULL AND height IS NOT NULL")
		case models.FormatSquare:
			sb.WriteString(" AND width = height AND width IS NOT NULL AND height IS NOT NULL")
		case models.FormatUnknown:
			sb.WriteString(" AND (width IS NULL OR height IS NULL OR width <= 0 OR height <= 0)")
		}
	}
	for _, id := range excludeIDs {
		sb.WriteString(" AND id != ?")
		args = append(args, id)
	}

	switch sort {
	case models.FetchModeRandom:
		// Reproducible within this call only: order is seeded by a
		// per-call value appended as a literal, not by a global RNG.
		sb.WriteString(fmt.Sprintf(" ORDER BY hash(id || '%d')", rand.Int63()))
	default:
		sb.WriteString(" ORDER BY posted_at DESC, id ASC")
	}

	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := ix.db.Conn().QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "search videos", err)
	}
	defer rows.Close()

	var out []models.Video
	for rows.Next() {
		var v models.Video
		var width, height sql.NullInt64
		if err := rows.Scan(&v.ID, &v.CreatorID, &v.Description, &v.PostedAt, &v.Permalink, &v.MediaURL,
			&v.Encodings.Source, &v.Encodings.MD, &v.Encodings.Thumbnail, &v.Encodings.GIF,
			&width, &height, &v.LikeCount, &v.ViewCount, &v.IndexedAt); err != nil {
			return nil, errs.Wrap(errs.KindTransient, "scan video row", err)
		}
		v.Width = int(width.Int64)
		v.Height = int(height.Int64)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindTransient, "iterate video rows", err)
	}
	return out, nil
}

// ListLatest returns the most recently posted videos, newest first,
// for the public viewer (spec §6.1: GET /api/latest?limit&offset).
func (ix *Index) ListLatest(ctx context.Context, limit, offset int) ([]models.Video, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := ix.db.Conn().QueryContext(ctx, `
		SELECT id, creator_id, description, posted_at, permalink, media_url, encoding_source, encoding_md, encoding_thumbnail, encoding_gif, width, height, like_count, view_count, indexed_at
		FROM videos ORDER BY posted_at DESC, id ASC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "list latest videos", err)
	}
	defer rows.Close()

	var out []models.Video
	for rows.Next() {
		var v models.Video
		var width, height sql.NullInt64
		if err := rows.Scan(&v.ID, &v.CreatorID, &v.Description, &v.PostedAt, &v.Permalink, &v.MediaURL,
			&v.Encodings.Source, &v.Encodings.MD, &v.Encodings.Thumbnail, &v.Encodings.GIF,
			&width, &height, &v.LikeCount, &v.ViewCount, &v.IndexedAt); err != nil {
			return nil, errs.Wrap(errs.KindTransient, "scan latest video row", err)
		}
		v.Width = int(width.Int64)
		v.Height = int(height.Int64)
		out = append(out, v)
	}
	return out, rows.Err()
}

// CountByTerm reports how many videos satisfy term/format, used by the
// Timeline Manager to decide exhaustion (spec §4.1, §4.4).
func (ix *Index) CountByTerm(ctx context.Context, term string, format models.Format) (int, error) {
	videos, err := ix.SearchVideos(ctx, term, 0, models.FetchModeNewest, format, nil)
	if err != nil {
		return 0, err
	}
	return len(videos), nil
}

// RecordIngestionCycle accumulates one Ingestion Scanner cycle's
// counters into the single ingestion_stats row and overwrites the
// 6-cycle rolling averages (spec §4.2 step 6; the Content Index owns
// IngestionStats per spec §3).
func (ix *Index) RecordIngestionCycle(ctx context.Context, scanned, newCount, duplicates, errorCount int64, interval time.Duration, avgThroughput6, avgOverlapRatio6 float64) error {
	_, err := ix.db.Conn().ExecContext(ctx, `
		UPDATE ingestion_stats SET
			total_scanned = total_scanned + ?,
			total_new = total_new + ?,
			total_duplicates = total_duplicates + ?,
			total_errors = total_errors + ?,
			current_interval_ms = ?,
			avg_throughput_6 = ?,
			avg_overlap_ratio_6 = ?,
			updated_at = ?
		WHERE id = 1
	`, scanned, newCount, duplicates, errorCount, interval.Milliseconds(), avgThroughput6, avgOverlapRatio6, time.Now().UTC())
	if err != nil {
		return errs.Wrap(errs.KindTransient, "record ingestion cycle", err)
	}
	return nil
}

// IngestionStats loads the current rolling counters.
func (ix *Index) IngestionStats(ctx context.Context) (models.IngestionStats, error) {
	var s models.IngestionStats
	var intervalMs int64
	err := ix.db.Conn().QueryRowContext(ctx, `
		SELECT total_scanned, total_new, total_duplicates, total_errors,
		       current_interval_ms, avg_throughput_6, avg_overlap_ratio_6, updated_at
		FROM ingestion_stats WHERE id = 1
	`).Scan(&s.TotalScanned, &s.TotalNew, &s.TotalDuplicates, &s.TotalErrors,
		&intervalMs, &s.AvgThroughput6, &s.AvgOverlapRatio6, &s.UpdatedAt)
	if err != nil {
		return s, errs.Wrap(errs.KindTransient, "load ingestion stats", err)
	}
	s.CurrentInterval = time.Duration(intervalMs) * time.Millisecond
	return s, nil
}
