// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package scanner implements the Ingestion Scanner (spec §4.2): a
// single-threaded logical worker that polls the upstream feed,
// deduplicates into the Content Index, self-tunes its polling
// interval from observed page-to-page overlap, and refreshes
// credentials on a timer.
package scanner

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/playlistd/internal/cache"
	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/eventbus"
	"github.com/tomtom215/playlistd/internal/index"
	"github.com/tomtom215/playlistd/internal/logging"
	"github.com/tomtom215/playlistd/internal/metrics"
	"github.com/tomtom215/playlistd/internal/models"
)

// Fixed parameters from spec §4.2.
const (
	PageSize        = 200
	RequestDeadline = 30 * time.Second
	WatchdogTimeout = 300 * time.Second
	rollingWindow   = 6

	// seenCacheCapacity/seenCacheTTL bound the in-memory dedup
	// fast-path; sized for a few hours of high-overlap polling at
	// PageSize items per cycle.
	seenCacheCapacity      = 50_000
	seenCacheTTL           = 6 * time.Hour
	seenCacheFalsePositive = 0.01
)

// cycleResult is one cycle's raw counters, folded into the rolling
// window for IngestionStats averages (spec §4.2 step 6).
type cycleResult struct {
	scanned    int
	newCount   int
	duplicates int
	errored    bool
	overlap    float64
	interval   time.Duration
	duration   time.Duration
}

// Scanner is the suture.Service driving the scan loop. At most one
// scan may be in flight (spec §4.2 scheduling model); Serve enforces
// this by construction since it is never called concurrently with
// itself by the supervisor.
type Scanner struct {
	client *breakerClient
	idx    *index.Index
	creds  *CredentialStore
	bus    eventbus.Bus

	mu                sync.Mutex
	interval          time.Duration
	consecutiveErrors int
	previousPage      map[string]struct{}
	window            []cycleResult

	// seen short-circuits repeat-insert attempts for video ids the
	// index has already accepted, via a bloom filter gated by an
	// exact LRU (cache.BloomLRU). A negative is certain (skip the
	// upsert round trip); a positive still falls through to
	// index.InsertVideo's own ON CONFLICT DO NOTHING, which remains
	// the source of truth.
	seen *cache.BloomLRU
}

// New builds a Scanner. initialInterval seeds the self-tuned cadence
// before any cycle has run.
func New(feedURL string, pageSize int, initialInterval time.Duration, creds *CredentialStore, idx *index.Index, bus eventbus.Bus) *Scanner {
	client := NewFeedClient(&http.Client{}, feedURL, pageSize, creds)
	return &Scanner{
		client:   newBreakerClient(client),
		idx:      idx,
		creds:    creds,
		bus:      bus,
		interval: initialInterval,
		seen:     cache.NewBloomLRU(seenCacheCapacity, seenCacheTTL, seenCacheFalsePositive),
	}
}

// Serve runs the scan loop until ctx is canceled (suture.Service).
func (s *Scanner) Serve(ctx context.Context) error {
	for {
		s.runWatchedCycle(ctx)
		metrics.ScannerCyclesTotal.Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.currentInterval()):
		}
	}
}

// RunOnce executes a single watched scan cycle and returns, for the
// `scan-once` CLI command (spec §6.5). Cycle-level errors are recorded
// into ingestion_stats rather than returned, consistent with Serve's
// loop; callers needing pass/fail should inspect IngestionStats.
func (s *Scanner) RunOnce(ctx context.Context) {
	s.runWatchedCycle(ctx)
	metrics.ScannerCyclesTotal.Inc()
}

func (s *Scanner) currentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// runWatchedCycle wraps one cycle with the 300s watchdog (spec §4.2:
// "A watchdog cancels any scan exceeding T_max = 300s and releases the
// lock"). The lock here is the implicit one-at-a-time invariant of the
// Serve loop itself; the watchdog's job is to bound a single cycle's
// wall-clock time, not to guard a mutex.
func (s *Scanner) runWatchedCycle(ctx context.Context) {
	watchCtx, cancel := context.WithTimeout(ctx, WatchdogTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.runCycle(watchCtx)
	}()

	select {
	case <-done:
	case <-watchCtx.Done():
		logging.Warn().Dur("timeout", WatchdogTimeout).Msg("scanner watchdog fired, abandoning cycle")
	}
}

// runCycle executes steps 1-7 of the spec §4.2 algorithm.
func (s *Scanner) runCycle(ctx context.Context) {
	start := time.Now()

	if s.creds.Due(start) {
		if err := s.creds.Refresh(ctx); err != nil {
			logging.Warn().Err(err).Msg("credential refresh failed")
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, RequestDeadline)
	page, err := s.fetchWithRetry(reqCtx)
	cancel()

	if err != nil {
		s.recordError(err)
		return
	}

	result := s.ingestPage(ctx, page)
	result.duration = time.Since(start)
	s.adjustInterval(result)
	s.recordCycle(ctx, result)
}

// fetchWithRetry retries transient transport failures up to 3 times
// with 1-2s backoff within the same cycle (spec §4.2 error taxonomy).
// It forces a credential refresh after 2 consecutive credential/parse
// failures, then retries once more with the refreshed credentials.
func (s *Scanner) fetchWithRetry(ctx context.Context) (*FeedPage, error) {
	var lastErr error
	credentialFailures := 0

	for attempt := 0; attempt < 3; attempt++ {
		page, err := s.client.FetchPage(ctx)
		if err == nil {
			return page, nil
		}
		lastErr = err

		kind := errs.KindOf(err)
		if kind == errs.KindCredentials || kind == errs.KindUpstream {
			credentialFailures++
			if credentialFailures >= 2 {
				if refreshErr := s.creds.Refresh(ctx); refreshErr != nil {
					logging.Warn().Err(refreshErr).Msg("forced credential refresh failed")
				}
			}
		}

		if kind != errs.KindTransient {
			return nil, lastErr
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(1+attempt) * time.Second):
		}
	}
	return nil, lastErr
}

// ingestPage runs steps 3-4: compute overlap against the previous
// page, then upsert each item's Creator and Video.
func (s *Scanner) ingestPage(ctx context.Context, page *FeedPage) cycleResult {
	current := make(map[string]struct{}, len(page.Items))
	for _, item := range page.Items {
		current[item.ID] = struct{}{}
	}

	s.mu.Lock()
	ratio := overlapRatio(current, s.previousPage)
	s.previousPage = current
	s.mu.Unlock()

	metrics.ScannerOverlapRatio.Set(ratio)

	var newCount, duplicates int
	for _, item := range page.Items {
		creator := models.Creator{
			ID:            item.Creator.ID,
			Username:      item.Creator.Username,
			ProfileLink:   item.Creator.ProfileLink,
			FollowerCount: item.Creator.FollowerCount,
			PostCount:     item.Creator.PostCount,
			Verified:      item.Creator.Verified,
		}
		if err := s.idx.UpsertCreator(ctx, creator); err != nil {
			logging.Warn().Err(err).Str("creator_id", creator.ID).Msg("failed to upsert creator")
			continue
		}

		video := models.Video{
			ID:          item.ID,
			CreatorID:   item.Creator.ID,
			Description: item.Description,
			PostedAt:    item.PostedAt,
			Permalink:   item.Permalink,
			MediaURL:    item.Media.Source,
			Encodings: models.Encodings{
				Source:    item.Media.Source,
				MD:        item.Media.MD,
				Thumbnail: item.Media.Thumbnail,
				GIF:       item.Media.GIF,
			},
			Width:     item.Width,
			Height:    item.Height,
			LikeCount: item.LikeCount,
			ViewCount: item.ViewCount,
		}
		if s.seen.Contains(video.ID) {
			duplicates++
			continue
		}
		if err := s.idx.InsertVideo(ctx, video); err != nil {
			if err == errs.ErrDuplicate {
				s.seen.Record(video.ID)
				duplicates++
				continue
			}
			logging.Warn().Err(err).Str("video_id", video.ID).Msg("failed to insert video")
			continue
		}
		s.seen.Record(video.ID)
		newCount++
		metrics.ScannerNewVideosTotal.Inc()
		s.publishIngested(ctx, video)
	}
	metrics.ScannerDuplicatesTotal.Add(float64(duplicates))

	s.mu.Lock()
	s.consecutiveErrors = 0
	s.mu.Unlock()

	return cycleResult{scanned: len(page.Items), newCount: newCount, duplicates: duplicates, overlap: ratio, interval: s.currentInterval()}
}

func (s *Scanner) publishIngested(ctx context.Context, v models.Video) {
	if s.bus == nil {
		return
	}
	err := s.bus.Publish(ctx, eventbus.TopicVideoIngested, eventbus.VideoIngested{
		VideoID:   v.ID,
		CreatorID: v.CreatorID,
		Format:    string(v.Format()),
		IndexedAt: time.Now().UTC(),
	})
	if err != nil {
		logging.Warn().Err(err).Msg("failed to publish video.ingested event")
	}
}

// adjustInterval applies step 5's overlap-driven tuning.
func (s *Scanner) adjustInterval(result cycleResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = adjustForOverlap(s.interval, result.overlap)
	metrics.ScannerPollInterval.Set(s.interval.Seconds())
}

// recordError applies step 2's consecutive-error escalation.
func (s *Scanner) recordError(err error) {
	metrics.ScannerErrorsTotal.WithLabelValues(string(errs.KindOf(err))).Inc()
	logging.Warn().Err(err).Msg("scanner cycle failed")

	s.mu.Lock()
	s.consecutiveErrors++
	s.interval, s.consecutiveErrors = escalateForErrors(s.interval, s.consecutiveErrors)
	metrics.ScannerPollInterval.Set(s.interval.Seconds())
	s.mu.Unlock()

	s.recordCycle(context.Background(), cycleResult{errored: true, interval: s.currentInterval()})
}

// recordCycle folds one cycle into the rolling window and persists
// the averages (spec §4.2 step 6).
func (s *Scanner) recordCycle(ctx context.Context, result cycleResult) {
	s.mu.Lock()
	s.window = append(s.window, result)
	if len(s.window) > rollingWindow {
		s.window = s.window[len(s.window)-rollingWindow:]
	}
	window := append([]cycleResult{}, s.window...)
	s.mu.Unlock()

	var throughputSum, overlapSum float64
	for _, c := range window {
		if c.duration > 0 {
			throughputSum += float64(c.newCount) / c.duration.Seconds()
		}
		overlapSum += c.overlap
	}
	n := float64(len(window))
	avgThroughput := 0.0
	avgOverlap := 0.0
	if n > 0 {
		avgThroughput = throughputSum / n
		avgOverlap = overlapSum / n
	}

	var thisCycleErrors int64
	if result.errored {
		thisCycleErrors = 1
	}

	if err := s.idx.RecordIngestionCycle(ctx, int64(result.scanned), int64(result.newCount), int64(result.duplicates), thisCycleErrors, s.currentInterval(), avgThroughput, avgOverlap); err != nil {
		logging.Warn().Err(err).Msg("failed to persist ingestion stats")
	}
}
