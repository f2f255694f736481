// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

//go:build !nats

package eventbus

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/playlistd/internal/config"
	"github.com/tomtom215/playlistd/internal/errs"
)

// newNATSBus is a stub when the binary is built without -tags nats.
// config.NATSConfig.Enabled without the build tag is a configuration
// error, not a silent fallback, so the operator notices at startup.
func newNATSBus(cfg config.NATSConfig, logger watermill.LoggerAdapter) (Bus, error) {
	return nil, errs.New(errs.KindFatal, "nats event bus requested but binary was built without -tags nats")
}
