// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package audit records mutating admin actions (SPEC_FULL §9), trimmed
// from the teacher's internal/audit to the single actor this system
// has: an externally authenticated admin. There is no authz-denied or
// detection event taxonomy here, since playlistd has no detection
// engine; every record is one admin action and its outcome.
package audit

import (
	"context"
	"time"
)

// Action is one completed or attempted admin-mutating call.
type Action struct {
	ID         string
	OccurredAt time.Time
	AdminID    string
	Action     string
	Target     string
	Outcome    string
}

// QueryFilter narrows Query results; the zero value matches everything.
type QueryFilter struct {
	AdminID   string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Store persists audit Actions.
type Store interface {
	Save(ctx context.Context, a Action) error
	Query(ctx context.Context, filter QueryFilter) ([]Action, error)
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}
