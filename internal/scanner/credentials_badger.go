// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

//go:build wal

package scanner

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/playlistd/internal/config"
)

const credentialsKey = "scanner:credentials"

// badgerPersistence durably stores the last-refreshed Credentials
// (spec SPEC_FULL §4.9, teacher pattern: internal/auth's
// BadgerSessionStore). Built behind the `wal` tag alongside the
// teacher's own badger-backed stores. When encryptor is non-nil, the
// marshaled Credentials are AES-256-GCM encrypted at rest (teacher
// pattern: internal/config's CredentialEncryptor).
type badgerPersistence struct {
	db        *badger.DB
	encryptor *config.CredentialEncryptor
}

// NewBadgerPersistence wraps an open badger.DB for credential
// storage. encryptor may be nil, in which case values are stored as
// plain JSON.
func NewBadgerPersistence(db *badger.DB, encryptor *config.CredentialEncryptor) persistence {
	return &badgerPersistence{db: db, encryptor: encryptor}
}

func (p *badgerPersistence) Load() (Credentials, bool) {
	var creds Credentials
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(credentialsKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data := val
			if p.encryptor != nil {
				plain, err := p.encryptor.Decrypt(string(val))
				if err != nil {
					return err
				}
				data = plain
			}
			return json.Unmarshal(data, &creds)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Credentials{}, false
	}
	if err != nil {
		return Credentials{}, false
	}
	return creds, true
}

func (p *badgerPersistence) Save(creds Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	if p.encryptor != nil {
		ciphertext, err := p.encryptor.Encrypt(data)
		if err != nil {
			return err
		}
		data = []byte(ciphertext)
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(credentialsKey), data)
	})
}
