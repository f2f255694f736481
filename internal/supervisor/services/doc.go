// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package services wraps components that do not already satisfy
// suture.Service (Serve(ctx context.Context) error) so the supervisor
// tree can run them, grounded on the teacher's
// internal/supervisor/services package.
package services
