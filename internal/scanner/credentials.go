// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/playlistd/internal/logging"
)

// Credentials are the upstream feed's bearer token, cookie jar, and
// user agent (spec §6.3).
type Credentials struct {
	BearerToken string
	Cookies     string
	UserAgent   string
	RefreshedAt time.Time
}

// Refresher is the external credential-rotation collaborator (spec
// §6.3, explicitly out of scope for this module's implementation —
// only its contract is named).
type Refresher interface {
	Refresh(ctx context.Context) (Credentials, error)
}

// persistence durably stores the last-refreshed Credentials so a
// restart doesn't immediately force a refresh (spec §9 / SPEC_FULL
// §4.9). The badger-backed implementation is built behind the `wal`
// tag; without it, persistence is a no-op and credentials live only
// in memory for the process lifetime.
type persistence interface {
	Load() (Credentials, bool)
	Save(Credentials) error
}

// CredentialStore holds the current Credentials and refreshes them on
// a 12h timer or after forced-refresh triggers (spec §4.2 step 1,
// §4.2 error taxonomy: "2 consecutive parse/auth failures").
type CredentialStore struct {
	mu        sync.RWMutex
	current   Credentials
	interval  time.Duration
	refresher Refresher
	store     persistence
}

// NewCredentialStore seeds the store from static configuration
// credentials (used until the first successful Refresh) and, when a
// persistence layer is wired, from the last durably saved value.
func NewCredentialStore(seed Credentials, interval time.Duration, refresher Refresher, store persistence) *CredentialStore {
	cs := &CredentialStore{current: seed, interval: interval, refresher: refresher, store: store}
	if store != nil {
		if saved, ok := store.Load(); ok {
			cs.current = saved
		}
	}
	return cs
}

// Current returns the active Credentials snapshot.
func (cs *CredentialStore) Current() Credentials {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.current
}

// Due reports whether the refresh interval has elapsed since the last
// refresh (spec §4.2 step 1: "credential-refresh timer (12h)").
func (cs *CredentialStore) Due(now time.Time) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.current.RefreshedAt.IsZero() || now.Sub(cs.current.RefreshedAt) >= cs.interval
}

// Refresh invokes the external Refresher and, on success, stores and
// persists the new Credentials. A nil Refresher is a no-op (scanners
// run without credential rotation configured use this path).
func (cs *CredentialStore) Refresh(ctx context.Context) error {
	if cs.refresher == nil {
		return nil
	}
	creds, err := cs.refresher.Refresh(ctx)
	if err != nil {
		return err
	}
	creds.RefreshedAt = time.Now().UTC()

	cs.mu.Lock()
	cs.current = creds
	cs.mu.Unlock()

	if cs.store != nil {
		if err := cs.store.Save(creds); err != nil {
			logging.Warn().Err(err).Msg("failed to persist refreshed credentials")
		}
	}
	return nil
}
