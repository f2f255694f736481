// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

/*
Package metrics provides Prometheus metrics collection and export for
observability of the content index, ingestion scanner, timeline manager,
playback state machine, and realtime hub.

Metrics are exposed at /metrics in Prometheus text format. Notable series:

  - http_requests_total / http_request_duration_seconds: API throughput and latency
  - scanner_cycles_total / scanner_errors_total: Ingestion Scanner cycle outcomes
  - scanner_poll_interval_seconds: current self-tuned polling interval
  - scanner_overlap_ratio: most recent page-to-page overlap ratio
  - timeline_queued_entries: queued TimelineEntries per display
  - timeline_materialize_duration_seconds: materialize() latency
  - hub_clients_active: connected websocket sessions
  - hub_commands_dropped_total: commands dropped for staleness

All recording functions are safe for concurrent use.
*/
package metrics
