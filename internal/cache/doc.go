// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

/*
Package cache provides thread-safe in-memory caching: a plain TTL map
(Cache), an LFU eviction cache (LFUCache, exposed through the Cacher
interface via NewLFU), and a Bloom-filter-backed dedup cache (BloomLRU)
for high-volume membership checks where an LRU's exact bookkeeping
would be wasted work.

# Call sites in this repository

internal/api.Router holds a Cache (TTL-only, no eviction) keyed by
listing/search parameters, short-circuiting repeat ListLatest and
SearchVideos requests against the Content Index for contentCacheTTL
(router.go, handlers_content.go):

	router.contentCache = cache.New(contentCacheTTL)
	if cached, ok := router.contentCache.Get(key); ok {
	    respondJSON(w, r, http.StatusOK, cached)
	    return
	}

internal/timeline.Manager holds an LFU Cacher keyed by Block search
term, so materializing several Blocks that share a term within one
Materialize pass issues one Content Index query instead of one per
Block (timeline.go):

	searchCache := cache.NewLFU(searchCacheCapacity, searchCacheTTL)

internal/scanner.Scanner holds a BloomLRU keyed by video ID, giving the
feed-polling loop an O(1) probabilistic "already ingested" check before
it falls through to the Content Index's unique-constraint insert
(scanner.go):

	seen := cache.NewBloomLRU(seenCacheCapacity, seenCacheTTL, seenCacheFalsePositive)
	if seen.Contains(videoID) {
	    continue
	}

# Usage

	c := cache.New(5 * time.Minute)
	c.Set("key", value)
	if v, ok := c.Get("key"); ok {
	    _ = v.(SomeType)
	}
	c.Delete("key")
	c.Clear()

Cache methods are safe for concurrent use (sync.RWMutex); TTL
expiration is checked lazily on Get, with no background cleanup
goroutine.
*/
package cache
