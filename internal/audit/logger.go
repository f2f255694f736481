// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/playlistd/internal/logging"
)

// Logger buffers Actions and writes them to a Store off the request
// path (teacher pattern: audit.Logger's asyncWriter), so a slow audit
// write never adds latency to the admin call it is recording.
type Logger struct {
	store     Store
	eventChan chan Action
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewLogger starts a Logger backed by store. bufferSize bounds how many
// unwritten Actions may queue before RecordAction starts dropping them
// (logged, not blocked: an admin call must never stall on audit I/O).
func NewLogger(store Store, bufferSize int) *Logger {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	l := &Logger{
		store:     store,
		eventChan: make(chan Action, bufferSize),
		stopChan:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Logger) run() {
	defer l.wg.Done()
	for {
		select {
		case a := <-l.eventChan:
			l.write(a)
		case <-l.stopChan:
			for {
				select {
				case a := <-l.eventChan:
					l.write(a)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) write(a Action) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.store.Save(ctx, a); err != nil {
		logging.Error().Err(err).Str("action", a.Action).Str("admin_id", a.AdminID).Msg("failed to persist audit action")
	}
}

// RecordAction implements api.AuditLogger. It never blocks the caller
// on storage; a full buffer drops the record with a warning log rather
// than backpressure the admin request that triggered it.
func (l *Logger) RecordAction(ctx context.Context, adminID, action, target, outcome string) {
	a := Action{
		ID:         uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		AdminID:    adminID,
		Action:     action,
		Target:     target,
		Outcome:    outcome,
	}
	select {
	case l.eventChan <- a:
	default:
		logging.Warn().Str("action", action).Str("admin_id", adminID).Msg("audit buffer full, dropping action record")
	}
}

// Close drains the buffer and stops the background writer.
func (l *Logger) Close() error {
	close(l.stopChan)
	l.wg.Wait()
	return nil
}
