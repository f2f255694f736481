// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

//go:build nats

package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/playlistd/internal/config"
)

func TestNATSBus_EmbeddedPublishSubscribe(t *testing.T) {
	bus, err := New(config.NATSConfig{Enabled: true, Embedded: true}, nil)
	if err != nil {
		t.Fatalf("new embedded nats bus: %v", err)
	}
	defer bus.Close()

	if _, ok := bus.(*natsBus); !ok {
		t.Fatalf("expected *natsBus, got %T", bus)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	received := make(chan VideoIngested, 1)
	err = bus.Subscribe(ctx, TopicVideoIngested, func(ctx context.Context, payload []byte) error {
		var v VideoIngested
		if err := json.Unmarshal(payload, &v); err != nil {
			return err
		}
		received <- v
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// JetStream subscriptions take a beat to attach after Subscribe
	// returns; give the consumer time to bind before publishing.
	time.Sleep(200 * time.Millisecond)

	want := VideoIngested{VideoID: "v1", CreatorID: "c1", Format: "wide"}
	if err := bus.Publish(ctx, TopicVideoIngested, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-received:
		if got.VideoID != want.VideoID || got.CreatorID != want.CreatorID {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for published message")
	}
}
