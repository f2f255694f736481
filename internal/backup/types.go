// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package backup snapshots the DuckDB file backing the Content Index,
// Playlist Store, and Timeline tables (SPEC_FULL §9), trimmed from the
// teacher's internal/backup down to a single operation: checkpoint,
// copy, compress, checksum. There is no scheduler, no archive/restore
// pipeline, and no tiered daily/weekly/monthly retention here — those
// model a media-analytics deployment's disaster-recovery posture that
// this single-file, single-operator deployment does not have.
package backup

import "time"

// Trigger indicates what initiated a Snapshot.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerRetention Trigger = "retention"
)

// Status is the outcome of a snapshot attempt.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Snapshot records one completed (or failed) backup attempt.
type Snapshot struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	FilePath  string        `json:"file_path"`
	FileSize  int64         `json:"file_size"`
	Checksum  string        `json:"checksum"`
	Trigger   Trigger       `json:"trigger"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// manifest is the JSON sidecar file (backups.json) listing every
// Snapshot taken into a given Dir, in place of the teacher's metadata
// store's scheduler/notification bookkeeping this system doesn't need.
type manifest struct {
	Snapshots []*Snapshot `json:"snapshots"`
}
