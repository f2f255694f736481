// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

//go:build wal

package main

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/playlistd/internal/config"
	"github.com/tomtom215/playlistd/internal/scanner"
)

// openCredentialPersistence opens a badger store at path for durable,
// at-rest-encrypted Scanner Credentials (SPEC_FULL §4.9). An empty
// path disables persistence even in a `wal` build. jwtSecret seeds
// the encryption key; an empty secret falls back to plain JSON
// storage rather than failing the whole command.
func openCredentialPersistence(path, jwtSecret string) (credentialPersistence, func() error, error) {
	if path == "" {
		return nil, func() error { return nil }, nil
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("open credential store at %s: %w", path, err)
	}
	var encryptor *config.CredentialEncryptor
	if jwtSecret != "" {
		encryptor, err = config.NewCredentialEncryptor(jwtSecret)
		if err != nil {
			return nil, nil, fmt.Errorf("init credential encryptor: %w", err)
		}
	}
	return scanner.NewBadgerPersistence(db, encryptor), db.Close, nil
}
