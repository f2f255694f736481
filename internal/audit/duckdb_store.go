// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/playlistd/internal/database"
	"github.com/tomtom215/playlistd/internal/errs"
)

// DuckDBStore persists Actions into the audit_actions table created by
// internal/database's schema (teacher pattern: audit.DuckDBStore, one
// table instead of a generic audit_events table since this system logs
// a single event shape).
type DuckDBStore struct {
	db *database.DB
}

// NewDuckDBStore wraps an open database for audit storage.
func NewDuckDBStore(db *database.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

func (s *DuckDBStore) Save(ctx context.Context, a Action) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now().UTC()
	}
	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO audit_actions (id, occurred_at, admin_id, action, target, outcome)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.OccurredAt, a.AdminID, a.Action, a.Target, a.Outcome)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "save audit action", err)
	}
	return nil
}

func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Action, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, occurred_at, admin_id, action, target, outcome FROM audit_actions WHERE 1=1`
	args := []any{}
	if filter.AdminID != "" {
		query += " AND admin_id = ?"
		args = append(args, filter.AdminID)
	}
	if filter.StartTime != nil {
		query += " AND occurred_at >= ?"
		args = append(args, *filter.StartTime)
	}
	if filter.EndTime != nil {
		query += " AND occurred_at <= ?"
		args = append(args, *filter.EndTime)
	}
	query += " ORDER BY occurred_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "query audit actions", err)
	}
	defer rows.Close()

	var out []Action
	for rows.Next() {
		var a Action
		if err := rows.Scan(&a.ID, &a.OccurredAt, &a.AdminID, &a.Action, &a.Target, &a.Outcome); err != nil {
			return nil, errs.Wrap(errs.KindTransient, "scan audit action", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *DuckDBStore) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.Conn().ExecContext(ctx, `DELETE FROM audit_actions WHERE occurred_at < ?`, olderThan)
	if err != nil {
		return 0, errs.Wrap(errs.KindTransient, "delete old audit actions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errs.Wrap(errs.KindTransient, "audit delete rows affected", err)
	}
	return n, nil
}
