// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

//go:build !wal

package main

// openCredentialPersistence is a no-op in the default build: Scanner
// Credentials live in memory only for the process lifetime. Build
// with -tags wal to persist them via badger (SPEC_FULL §4.9).
func openCredentialPersistence(_, _ string) (credentialPersistence, func() error, error) {
	return nil, func() error { return nil }, nil
}
