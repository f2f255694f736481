// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package models defines the core entities shared across the content
// index, playlist store, timeline manager, and playback state machine
// (spec §3).
package models

import "time"

// Format is the derived aspect-ratio classification of a Video, or the
// filter a Block applies when selecting candidates.
type Format string

const (
	FormatWide    Format = "wide"
	FormatTall    Format = "tall"
	FormatSquare  Format = "square"
	FormatUnknown Format = "unknown"
	FormatMixed   Format = "mixed"
)

// DeriveFormat classifies a Video by its pixel dimensions. Zero or
// mismatched width/height (one present, one not) yields FormatUnknown.
func DeriveFormat(width, height int) Format {
	if width <= 0 || height <= 0 {
		return FormatUnknown
	}
	switch {
	case width > height:
		return FormatWide
	case height > width:
		return FormatTall
	default:
		return FormatSquare
	}
}

// MatchesBlockFormat reports whether a Video's format satisfies a
// Block's format filter (I4). FormatMixed passes everything; wide/tall
// are strict.
func MatchesBlockFormat(videoFormat, blockFormat Format) bool {
	if blockFormat == FormatMixed {
		return true
	}
	return videoFormat == blockFormat
}

// Creator is an upstream user identity (spec §3).
type Creator struct {
	ID          string    `db:"id"`
	Username    string    `db:"username"`
	ProfileLink string    `db:"profile_link"`
	FollowerCount int64   `db:"follower_count"`
	PostCount   int64     `db:"post_count"`
	Verified    bool      `db:"verified"`
	FirstSeenAt time.Time `db:"first_seen_at"`
	LastSeenAt  time.Time `db:"last_seen_at"`
}

// Encodings holds the alternate media URLs attached to a Video.
type Encodings struct {
	Source    string `json:"source,omitempty"`
	MD        string `json:"md,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	GIF       string `json:"gif,omitempty"`
}

// Video is one upstream post (spec §3). Width/Height are zero when
// unknown, which forces Format to FormatUnknown.
type Video struct {
	ID          string    `db:"id"`
	CreatorID   string    `db:"creator_id"`
	Description string    `db:"description"`
	PostedAt    int64     `db:"posted_at"`
	Permalink   string    `db:"permalink"`
	MediaURL    string    `db:"media_url"`
	Encodings   Encodings `db:"encodings"`
	Width       int       `db:"width"`
	Height      int       `db:"height"`
	LikeCount   int64     `db:"like_count"`
	ViewCount   int64     `db:"view_count"`
	IndexedAt   time.Time `db:"indexed_at"`
}

// Format derives the aspect-ratio classification for this Video.
func (v Video) Format() Format {
	return DeriveFormat(v.Width, v.Height)
}

// PlaybackState is a Display's current playback mode (spec §4.5).
type PlaybackState string

const (
	PlaybackIdle    PlaybackState = "idle"
	PlaybackPlaying PlaybackState = "playing"
	PlaybackPaused  PlaybackState = "paused"
)

// Display is a remote playback endpoint identified by a 6-character
// uppercase alphanumeric code (spec §3).
type Display struct {
	Code               string        `db:"code"`
	Name               string        `db:"name"`
	PlaybackState      PlaybackState `db:"playback_state"`
	CurrentPlaylistID  *string       `db:"current_playlist_id"`
	CurrentVideoID     *string       `db:"current_video_id"`
	CurrentBlockID     *string       `db:"current_block_id"`
	TimelinePosition   int           `db:"timeline_position"`
	LastPing           time.Time     `db:"last_ping"`
	Muted              bool          `db:"muted"`
	CreatedAt          time.Time     `db:"created_at"`
}

// IsOnline reports liveness per spec §4.6: a Display missing two
// consecutive heartbeats (> stalenessWindow since last ping) is offline.
func (d Display) IsOnline(now time.Time, stalenessWindow time.Duration) bool {
	return now.Sub(d.LastPing) <= stalenessWindow
}

// Playlist is a named, ordered collection of Blocks for one Display
// (spec §3). At most one Playlist per Display has IsActive=true.
type Playlist struct {
	ID          string    `db:"id"`
	DisplayCode string    `db:"display_code"`
	Name        string    `db:"name"`
	IsActive    bool      `db:"is_active"`
	LoopCount   int       `db:"loop_count"`
	CreatedAt   time.Time `db:"created_at"`
}

// FetchMode selects how a Block's candidates are ordered by the
// Content Index.
type FetchMode string

const (
	FetchModeNewest FetchMode = "newest"
	FetchModeRandom FetchMode = "random"
)

// Block is a search specification that expands to a quantity of
// concrete videos within a Playlist (spec §3).
type Block struct {
	ID           string    `db:"id"`
	PlaylistID   string    `db:"playlist_id"`
	BlockOrder   int       `db:"block_order"`
	SearchTerm   string    `db:"search_term"`
	VideoCount   int       `db:"video_count"`
	Format       Format    `db:"format"`
	FetchMode    FetchMode `db:"fetch_mode"`
	TimesPlayed  int       `db:"times_played"`
	LastPlayedAt *time.Time `db:"last_played_at"`
}

// EntryStatus is a TimelineEntry's lifecycle state.
type EntryStatus string

const (
	EntryQueued  EntryStatus = "queued"
	EntryPlayed  EntryStatus = "played"
	EntrySkipped EntryStatus = "skipped"
)

// TimelineEntry binds a Video to a Display's Playlist at a specific
// ordinal (spec §3, invariants I1-I5).
type TimelineEntry struct {
	ID               string      `db:"id"`
	DisplayCode      string      `db:"display_code"`
	PlaylistID       string      `db:"playlist_id"`
	BlockID          string      `db:"block_id"`
	VideoID          string      `db:"video_id"`
	TimelinePosition int         `db:"timeline_position"`
	Status           EntryStatus `db:"status"`
	BlockPosition    int         `db:"block_position"`
	LoopIteration    int         `db:"loop_iteration"`
	CreatedAt        time.Time   `db:"created_at"`
}

// TimelineEntryRef is the narrow projection of a TimelineEntry needed
// to advance playback: id, owning Block, Video, and position within
// the Block.
type TimelineEntryRef struct {
	ID            string
	BlockID       string
	VideoID       string
	BlockPosition int
}

// VideoHistory is an append-only log of playback completions, used for
// exhaustion testing and recovery (spec §3).
type VideoHistory struct {
	ID          string    `db:"id"`
	DisplayCode string    `db:"display_code"`
	BlockID     string    `db:"block_id"`
	VideoID     string    `db:"video_id"`
	PlayedAt    time.Time `db:"played_at"`
}

// IngestionStats are the rolling counters and rates maintained by the
// Ingestion Scanner (spec §3, §4.2).
type IngestionStats struct {
	TotalScanned      int64     `db:"total_scanned"`
	TotalNew          int64     `db:"total_new"`
	TotalDuplicates   int64     `db:"total_duplicates"`
	TotalErrors       int64     `db:"total_errors"`
	CurrentInterval   time.Duration `db:"current_interval"`
	AvgThroughput6    float64   `db:"avg_throughput_6"`
	AvgOverlapRatio6  float64   `db:"avg_overlap_ratio_6"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// CommandType enumerates the imperative commands a Display session can
// receive (spec §4.5, §6.1).
type CommandType string

const (
	CommandPlay      CommandType = "play"
	CommandPause     CommandType = "pause"
	CommandStop      CommandType = "stop"
	CommandNext      CommandType = "next"
	CommandSetMuted  CommandType = "setMuted"
)

// CommandStatus reports delivery outcome of a Command.
type CommandStatus string

const (
	CommandStatusQueued      CommandStatus = "queued"
	CommandStatusDelivered   CommandStatus = "delivered"
	CommandStatusUndelivered CommandStatus = "undelivered"
	CommandStatusFailed      CommandStatus = "failed"
)

// Command is one enqueued imperative instruction for a Display (spec §4.5).
type Command struct {
	ID          string          `json:"id"`
	DisplayCode string          `json:"displayCode"`
	Type        CommandType     `json:"type"`
	Payload     map[string]any  `json:"payload,omitempty"`
	Status      CommandStatus   `json:"status"`
	Reason      string          `json:"reason,omitempty"`
	EnqueuedAt  time.Time       `json:"enqueuedAt"`
}
