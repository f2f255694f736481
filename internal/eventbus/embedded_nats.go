// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

//go:build nats

package eventbus

import (
	"os"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/tomtom215/playlistd/internal/errs"
)

// embeddedServer runs a JetStream-capable NATS server in-process, for
// single-node deployments that don't want to operate an external NATS
// cluster (config.NATSConfig.Embedded). It owns a scratch directory for
// JetStream's file store and removes it on Shutdown.
type embeddedServer struct {
	srv      *natsserver.Server
	storeDir string
}

// startEmbeddedServer boots a NATS server bound to an OS-assigned
// localhost port and blocks until it is ready for client connections.
func startEmbeddedServer() (*embeddedServer, error) {
	storeDir, err := os.MkdirTemp("", "playlistd-nats-*")
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "create jetstream store dir", err)
	}

	opts := &natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1, // any free port
		JetStream: true,
		StoreDir:  storeDir,
		NoLog:     true,
		NoSigs:    true,
	}

	srv, err := natsserver.NewServer(opts)
	if err != nil {
		_ = os.RemoveAll(storeDir)
		return nil, errs.Wrap(errs.KindTransient, "create embedded nats server", err)
	}

	srv.Start()
	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		_ = os.RemoveAll(storeDir)
		return nil, errs.New(errs.KindTransient, "embedded nats server did not become ready")
	}

	return &embeddedServer{srv: srv, storeDir: storeDir}, nil
}

func (e *embeddedServer) clientURL() string {
	return e.srv.ClientURL()
}

func (e *embeddedServer) shutdown() {
	e.srv.Shutdown()
	e.srv.WaitForShutdown()
	_ = os.RemoveAll(e.storeDir)
}
