// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package scanner

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRefresher struct {
	creds Credentials
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context) (Credentials, error) {
	return f.creds, f.err
}

type fakePersistence struct {
	saved Credentials
	seed  Credentials
	ok    bool
}

func (f *fakePersistence) Load() (Credentials, bool) { return f.seed, f.ok }
func (f *fakePersistence) Save(c Credentials) error  { f.saved = c; return nil }

func TestCredentialStore_Due(t *testing.T) {
	cs := NewCredentialStore(Credentials{}, time.Hour, nil, nil)
	if !cs.Due(time.Now()) {
		t.Error("expected Due to be true before any refresh")
	}
}

func TestCredentialStore_Refresh_NilRefresherIsNoop(t *testing.T) {
	cs := NewCredentialStore(Credentials{BearerToken: "seed"}, time.Hour, nil, nil)
	if err := cs.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if cs.Current().BearerToken != "seed" {
		t.Errorf("credentials changed despite nil refresher: %+v", cs.Current())
	}
}

func TestCredentialStore_Refresh_UpdatesAndPersists(t *testing.T) {
	refresher := &fakeRefresher{creds: Credentials{BearerToken: "fresh"}}
	store := &fakePersistence{}
	cs := NewCredentialStore(Credentials{BearerToken: "stale"}, time.Hour, refresher, store)

	if err := cs.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if cs.Current().BearerToken != "fresh" {
		t.Errorf("BearerToken = %q, want fresh", cs.Current().BearerToken)
	}
	if cs.Current().RefreshedAt.IsZero() {
		t.Error("RefreshedAt not stamped")
	}
	if store.saved.BearerToken != "fresh" {
		t.Errorf("persisted BearerToken = %q, want fresh", store.saved.BearerToken)
	}
	if cs.Due(time.Now()) {
		t.Error("Due should be false immediately after refresh")
	}
}

func TestCredentialStore_Refresh_PropagatesError(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("upstream down")}
	cs := NewCredentialStore(Credentials{BearerToken: "seed"}, time.Hour, refresher, nil)

	if err := cs.Refresh(context.Background()); err == nil {
		t.Fatal("expected error from failing refresher")
	}
	if cs.Current().BearerToken != "seed" {
		t.Errorf("credentials changed despite refresh failure: %+v", cs.Current())
	}
}

func TestNewCredentialStore_LoadsFromPersistence(t *testing.T) {
	store := &fakePersistence{seed: Credentials{BearerToken: "saved"}, ok: true}
	cs := NewCredentialStore(Credentials{BearerToken: "config-seed"}, time.Hour, nil, store)

	if cs.Current().BearerToken != "saved" {
		t.Errorf("BearerToken = %q, want saved", cs.Current().BearerToken)
	}
}
