// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package scanner

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/playlistd/internal/errs"
)

// FeedItem is one upstream post as delivered by the feed page, shaped
// to the Video/Creator split the Content Index stores (spec §3).
type FeedItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	PostedAt    int64  `json:"postedAt"`
	Permalink   string `json:"permalink"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	LikeCount   int64  `json:"likeCount"`
	ViewCount   int64  `json:"viewCount"`
	Media       struct {
		Source    string `json:"source"`
		MD        string `json:"md"`
		Thumbnail string `json:"thumbnail"`
		GIF       string `json:"gif"`
	} `json:"media"`
	Creator struct {
		ID            string `json:"id"`
		Username      string `json:"username"`
		ProfileLink   string `json:"profileLink"`
		FollowerCount int64  `json:"followerCount"`
		PostCount     int64  `json:"postCount"`
		Verified      bool   `json:"verified"`
	} `json:"creator"`
}

// FeedPage is the decoded response body of one page request.
type FeedPage struct {
	Items []FeedItem `json:"items"`
}

// FeedClient issues authenticated requests against the upstream
// content feed (spec §4.2, §6.3). Credentials are read fresh on every
// call so CredentialStore.Refresh updates take effect immediately.
type FeedClient struct {
	httpClient *http.Client
	url        string
	pageSize   int
	creds      *CredentialStore
}

// NewFeedClient builds a client bound to one feed URL and page size.
// The *http.Client should carry the per-request deadline via its
// caller's context, not a client-wide Timeout (spec §4.2: "30s
// deadline" is per request, not per connection).
func NewFeedClient(httpClient *http.Client, feedURL string, pageSize int, creds *CredentialStore) *FeedClient {
	return &FeedClient{httpClient: httpClient, url: feedURL, pageSize: pageSize, creds: creds}
}

// FetchPage issues one page request (spec §4.2 step 2). A non-2xx
// status or a non-JSON body is reported as errs.KindUpstream so the
// scan loop's consecutive-error counter can distinguish it from a
// transport-level errs.KindTransient failure.
func (c *FeedClient) FetchPage(ctx context.Context) (*FeedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, errs.Wrap(errs.KindFatal, "build feed request", err)
	}

	creds := c.creds.Current()
	if creds.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+creds.BearerToken)
	}
	if creds.Cookies != "" {
		req.Header.Set("Cookie", creds.Cookies)
	}
	if creds.UserAgent != "" {
		req.Header.Set("User-Agent", creds.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	q := req.URL.Query()
	q.Set("limit", fmt.Sprintf("%d", c.pageSize))
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "feed request transport error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errs.Wrap(errs.KindCredentials, "feed request rejected credentials", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.Wrap(errs.KindUpstream, "feed request failed", fmt.Errorf("status %d", resp.StatusCode))
	}

	var page FeedPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, errs.Wrap(errs.KindUpstream, "feed response is not valid JSON", err)
	}
	return &page, nil
}
