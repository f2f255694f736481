// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package errs defines the error kinds shared across the orchestration
// core so the API layer can map them to HTTP status codes without
// depending on the internals of each component.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and HTTP mapping (spec §7).
type Kind string

const (
	KindBadInput           Kind = "BadInput"
	KindNotFound           Kind = "NotFound"
	KindConflict           Kind = "Conflict"
	KindInvariantViolation Kind = "InvariantViolation"
	KindUpstream           Kind = "Upstream"
	KindCredentials        Kind = "Credentials"
	KindTransient          Kind = "Transient"
	KindFatal              Kind = "Fatal"
)

// Error wraps a Kind with context. Callers compare kinds with As/Is,
// not string matching.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind around an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, defaulting to KindFatal when err
// does not carry a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}

// Sentinel errors for conditions components check with errors.Is.
var (
	ErrDuplicate        = errors.New("duplicate id")
	ErrIndexUnavailable  = errors.New("content index unavailable")
	ErrMalformedCSV      = errors.New("malformed csv")
	ErrNonDenseOrder     = errors.New("block order is not a dense permutation")
	ErrNotIdle           = errors.New("display is not idle")
	ErrUndelivered       = errors.New("command undelivered: display stale")
	ErrDisplayCodeTaken  = errors.New("display code already exists")
	ErrNoActivePlaylist  = errors.New("display has no active playlist")
	ErrNoQueuedEntry     = errors.New("no queued timeline entry at or after current position")
)
