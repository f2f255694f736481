// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	httpRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "Number of HTTP requests currently being served.",
	})

	ScannerCyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scanner_cycles_total",
		Help: "Total ingestion scan cycles completed.",
	})

	ScannerErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_errors_total",
		Help: "Total ingestion scan errors by kind.",
	}, []string{"kind"})

	ScannerNewVideosTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scanner_new_videos_total",
		Help: "Total new videos inserted into the content index.",
	})

	ScannerDuplicatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scanner_duplicates_total",
		Help: "Total duplicate videos observed during ingestion.",
	})

	ScannerPollInterval = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scanner_poll_interval_seconds",
		Help: "Current self-tuned scanner polling interval.",
	})

	ScannerOverlapRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scanner_overlap_ratio",
		Help: "Most recent page-to-page overlap ratio observed by the scanner.",
	})

	TimelineQueuedEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "timeline_queued_entries",
		Help: "Queued TimelineEntries per display.",
	}, []string{"display_code"})

	TimelineMaterializeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timeline_materialize_duration_seconds",
		Help:    "Duration of Timeline Manager materialize() calls.",
		Buckets: prometheus.DefBuckets,
	})

	HubClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hub_clients_active",
		Help: "Number of connected realtime hub sessions.",
	})

	HubCommandsDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hub_commands_dropped_total",
		Help: "Commands dropped because the target display was stale.",
	}, []string{"command_type"})

	CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state: 0=closed, 1=half-open, 2=open.",
	}, []string{"name"})

	CircuitBreakerRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_requests_total",
		Help: "Circuit breaker requests by outcome.",
	}, []string{"name", "outcome"})

	CircuitBreakerConsecutiveFailures = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_consecutive_failures",
		Help: "Current consecutive failure count observed by a circuit breaker.",
	}, []string{"name"})

	CircuitBreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_transitions_total",
		Help: "Circuit breaker state transitions.",
	}, []string{"name", "from", "to"})
)

// Registry is the process-wide collector registry. main() registers it
// with promhttp.HandlerFor instead of the global DefaultRegisterer so
// tests can construct isolated registries.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		httpRequestsInFlight,
		ScannerCyclesTotal,
		ScannerErrorsTotal,
		ScannerNewVideosTotal,
		ScannerDuplicatesTotal,
		ScannerPollInterval,
		ScannerOverlapRatio,
		TimelineQueuedEntries,
		TimelineMaterializeDuration,
		HubClientsActive,
		HubCommandsDroppedTotal,
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerConsecutiveFailures,
		CircuitBreakerTransitions,
	)
}

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		httpRequestsInFlight.Inc()
		return
	}
	httpRequestsInFlight.Dec()
}
