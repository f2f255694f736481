// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package scanner

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/playlistd/internal/config"
	"github.com/tomtom215/playlistd/internal/database"
	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/eventbus"
	"github.com/tomtom215/playlistd/internal/index"
)

func setupTestIndex(t *testing.T) *index.Index {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB"})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return index.New(db)
}

func feedPageHandler(items string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[` + items + `]}`))
	}
}

func TestScanner_RunCycle_IngestsNewVideosAndUpdatesStats(t *testing.T) {
	srv := httptest.NewServer(feedPageHandler(
		`{"id":"v1","description":"hello","creator":{"id":"c1","username":"alice"}},` +
			`{"id":"v2","description":"world","creator":{"id":"c1","username":"alice"}}`,
	))
	defer srv.Close()

	idx := setupTestIndex(t)
	creds := newTestCredentialStore()
	s := New(srv.URL, 200, 10*time.Second, creds, idx, nil)

	s.runCycle(context.Background())

	stats, err := idx.IngestionStats(context.Background())
	if err != nil {
		t.Fatalf("IngestionStats: %v", err)
	}
	if stats.TotalScanned != 2 {
		t.Errorf("TotalScanned = %d, want 2", stats.TotalScanned)
	}
	if stats.TotalNew != 2 {
		t.Errorf("TotalNew = %d, want 2", stats.TotalNew)
	}
	if stats.TotalErrors != 0 {
		t.Errorf("TotalErrors = %d, want 0", stats.TotalErrors)
	}
}

func TestScanner_RunCycle_DeduplicatesAcrossCycles(t *testing.T) {
	srv := httptest.NewServer(feedPageHandler(
		`{"id":"v1","description":"hello","creator":{"id":"c1","username":"alice"}}`,
	))
	defer srv.Close()

	idx := setupTestIndex(t)
	creds := newTestCredentialStore()
	s := New(srv.URL, 200, 10*time.Second, creds, idx, nil)

	s.runCycle(context.Background())
	s.runCycle(context.Background())

	stats, err := idx.IngestionStats(context.Background())
	if err != nil {
		t.Fatalf("IngestionStats: %v", err)
	}
	if stats.TotalNew != 1 {
		t.Errorf("TotalNew = %d, want 1 (second cycle should be all duplicates)", stats.TotalNew)
	}
	if stats.TotalDuplicates != 1 {
		t.Errorf("TotalDuplicates = %d, want 1", stats.TotalDuplicates)
	}
	if stats.TotalScanned != 2 {
		t.Errorf("TotalScanned = %d, want 2 across both cycles", stats.TotalScanned)
	}
}

func TestScanner_RunCycle_SeenCacheShortCircuitsRepeatInserts(t *testing.T) {
	srv := httptest.NewServer(feedPageHandler(
		`{"id":"v1","description":"hello","creator":{"id":"c1","username":"alice"}}`,
	))
	defer srv.Close()

	idx := setupTestIndex(t)
	creds := newTestCredentialStore()
	s := New(srv.URL, 200, 10*time.Second, creds, idx, nil)

	s.runCycle(context.Background())
	if !s.seen.Contains("v1") {
		t.Fatal("expected v1 to be recorded in the seen cache after first cycle")
	}

	s.runCycle(context.Background())
	stats, err := idx.IngestionStats(context.Background())
	if err != nil {
		t.Fatalf("IngestionStats: %v", err)
	}
	if stats.TotalDuplicates != 1 {
		t.Errorf("TotalDuplicates = %d, want 1 (seen cache should still count the skip)", stats.TotalDuplicates)
	}
}

func TestScanner_RunCycle_PublishesVideoIngested(t *testing.T) {
	srv := httptest.NewServer(feedPageHandler(
		`{"id":"v1","description":"hello","creator":{"id":"c1","username":"alice"}}`,
	))
	defer srv.Close()

	idx := setupTestIndex(t)
	creds := newTestCredentialStore()
	bus, err := eventbus.New(config.NATSConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("eventbus.New: %v", err)
	}
	defer bus.Close()
	s := New(srv.URL, 200, 10*time.Second, creds, idx, bus)

	received := make(chan struct{}, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := bus.Subscribe(ctx, eventbus.TopicVideoIngested, func(ctx context.Context, payload []byte) error {
		received <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	s.runCycle(ctx)

	select {
	case <-received:
	case <-ctx.Done():
		t.Fatal("timed out waiting for video.ingested event")
	}
}

func TestScanner_RecordError_EscalatesIntervalAndErrorCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	idx := setupTestIndex(t)
	creds := newTestCredentialStore()
	s := New(srv.URL, 200, 10*time.Second, creds, idx, nil)

	for i := 0; i < 3; i++ {
		s.runCycle(context.Background())
	}

	if got := s.currentInterval(); got != 20*time.Second {
		t.Errorf("currentInterval() = %v, want 20s after three consecutive errors", got)
	}

	stats, err := idx.IngestionStats(context.Background())
	if err != nil {
		t.Fatalf("IngestionStats: %v", err)
	}
	if stats.TotalErrors != 3 {
		t.Errorf("TotalErrors = %d, want 3 (one per cycle, not re-summed from the window)", stats.TotalErrors)
	}
}

func TestScanner_RecordCycle_RollingWindowCapped(t *testing.T) {
	idx := setupTestIndex(t)
	creds := newTestCredentialStore()
	s := New("http://unused.invalid", 200, 10*time.Second, creds, idx, nil)

	for i := 0; i < rollingWindow+4; i++ {
		s.recordCycle(context.Background(), cycleResult{scanned: 1, newCount: 1, duration: time.Second})
	}

	if len(s.window) != rollingWindow {
		t.Errorf("len(window) = %d, want %d", len(s.window), rollingWindow)
	}

	stats, err := idx.IngestionStats(context.Background())
	if err != nil {
		t.Fatalf("IngestionStats: %v", err)
	}
	if stats.TotalScanned != int64(rollingWindow+4) {
		t.Errorf("TotalScanned = %d, want %d (every cycle accumulates, window only bounds the average)", stats.TotalScanned, rollingWindow+4)
	}
}

func TestScanner_FetchWithRetry_RetriesTransientFailures(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			panic(http.ErrAbortHandler) // forces a transport-level error, not a status code
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	idx := setupTestIndex(t)
	creds := newTestCredentialStore()
	s := New(srv.URL, 200, 10*time.Second, creds, idx, nil)

	page, err := s.fetchWithRetry(context.Background())
	if err != nil {
		t.Fatalf("fetchWithRetry: %v", err)
	}
	if page == nil {
		t.Fatal("expected a page after retries succeeded")
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestScanner_FetchWithRetry_NonTransientShortCircuits(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	idx := setupTestIndex(t)
	creds := newTestCredentialStore()
	s := New(srv.URL, 200, 10*time.Second, creds, idx, nil)

	_, err := s.fetchWithRetry(context.Background())
	if errs.KindOf(err) != errs.KindCredentials {
		t.Fatalf("KindOf(err) = %v, want %v", errs.KindOf(err), errs.KindCredentials)
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("attempts = %d, want 1 (credential failures should not be retried as transient)", attempts)
	}
}

func TestScanner_RunWatchedCycle_DoesNotHangPastWatchdog(t *testing.T) {
	// A closed listener refuses the connection immediately, unlike an
	// unresolvable host name, which can block on DNS resolution for
	// several seconds depending on the local resolver.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	idx := setupTestIndex(t)
	creds := newTestCredentialStore()
	s := New("http://"+addr, 200, 10*time.Second, creds, idx, nil)

	done := make(chan struct{})
	go func() {
		s.runWatchedCycle(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runWatchedCycle did not return promptly for an unreachable host")
	}
}
