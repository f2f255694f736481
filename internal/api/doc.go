// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package api exposes the External HTTP/Command API (spec §4.7, §6.1)
// over a Chi router: Display lifecycle and commands, Timeline progress,
// Playlist import/export/reorder, and the public content-index read
// endpoints. Every mutating route that names a Display requires a
// display-ownership JWT (internal/auth) and a Casbin grant
// (internal/authz); the public content endpoints require neither.
package api
