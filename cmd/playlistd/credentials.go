// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package main

import "github.com/tomtom215/playlistd/internal/scanner"

// credentialPersistence mirrors scanner's unexported persistence
// interface structurally, letting this package hold a value returned
// from scanner.NewBadgerPersistence without naming that type.
type credentialPersistence interface {
	Load() (scanner.Credentials, bool)
	Save(scanner.Credentials) error
}
