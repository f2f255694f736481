// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package models

import "time"

// APIResponse is the standard envelope for every HTTP handler response
// (spec §6.1). Status is "success" or "error"; Error is populated only
// for the latter.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response-level observability fields.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId,omitempty"`
}

// APIError is the structured error payload of a failed APIResponse.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
