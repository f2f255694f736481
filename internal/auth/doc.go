// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package auth issues and validates display-ownership JWTs (spec §4.7,
// §6.3). It authenticates nothing beyond that: every Non-goal in spec.md
// that excludes "user authentication" leaves this package's scope
// untouched because ownership tokens are a named exception.
package auth
