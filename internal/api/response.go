// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package api

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/logging"
	"github.com/tomtom215/playlistd/internal/models"
)

// validate runs struct-tag validation on decoded request bodies. A
// single validator.Validate is safe for concurrent use and caches
// struct reflection, so one package-level instance is shared across
// handlers.
var validate = validator.New()

// decodeAndValidate decodes r's JSON body into req and runs its
// `validate` struct tags, returning a KindBadInput error describing
// whichever step failed first.
func decodeAndValidate(r *http.Request, req interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return errs.Wrap(errs.KindBadInput, "decode request body", err)
	}
	if err := validate.Struct(req); err != nil {
		return errs.Wrap(errs.KindBadInput, "validate request body", err)
	}
	return nil
}

// respondJSON writes a models.APIResponse as JSON with the given status.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	body, err := json.Marshal(models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
	})
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.CtxErr(r.Context(), err).Msg("failed to write response")
	}
}

// respondError writes a models.APIResponse carrying an APIError,
// mapping err's errs.Kind to an HTTP status per spec §7.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusForError(err)
	logging.CtxErr(r.Context(), err).Str("code", code).Msg("api request failed")

	body, merr := json.Marshal(models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
		Error: &models.APIError{Code: code, Message: err.Error()},
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if merr != nil {
		return
	}
	if _, werr := w.Write(body); werr != nil {
		logging.CtxErr(r.Context(), werr).Msg("failed to write error response")
	}
}

// statusForError maps an errs.Kind to an HTTP status and a stable
// machine-readable code (spec §7: "maps kinds to 400/404/409/422/5xx").
func statusForError(err error) (int, string) {
	switch errs.KindOf(err) {
	case errs.KindBadInput:
		return http.StatusBadRequest, "BAD_INPUT"
	case errs.KindNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case errs.KindConflict:
		return http.StatusConflict, "CONFLICT"
	case errs.KindInvariantViolation:
		return http.StatusUnprocessableEntity, "INVARIANT_VIOLATION"
	case errs.KindUpstream:
		return http.StatusBadGateway, "UPSTREAM"
	case errs.KindCredentials:
		return http.StatusBadGateway, "CREDENTIALS"
	case errs.KindTransient:
		return http.StatusServiceUnavailable, "TRANSIENT"
	default:
		return http.StatusInternalServerError, "FATAL"
	}
}
