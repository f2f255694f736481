// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package scanner

import (
	"context"
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/logging"
	"github.com/tomtom215/playlistd/internal/metrics"
)

const circuitBreakerName = "scanner-feed"

// breakerClient wraps FeedClient.FetchPage with a circuit breaker
// tripped on the same "three consecutive errors" threshold spec §4.2
// uses for interval escalation (teacher pattern:
// internal/sync/jellyfin_circuit_breaker.go), so the breaker's open
// state enforces the clamp instead of duplicating that logic: while
// open, FetchPage fails fast without an upstream round trip. A token
// bucket limited to minInterval backs the self-tuned polling cadence
// with a hard floor, so a misconfigured or erroneously shortened
// interval can never exceed one request per minInterval.
type breakerClient struct {
	client  *FeedClient
	cb      *gobreaker.CircuitBreaker[*FeedPage]
	limiter *rate.Limiter
}

func newBreakerClient(client *FeedClient) *breakerClient {
	metrics.CircuitBreakerState.WithLabelValues(circuitBreakerName).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(circuitBreakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[*FeedPage](gobreaker.Settings{
		Name:        circuitBreakerName,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     minInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("scanner circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})
	return &breakerClient{client: client, cb: cb, limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

func (b *breakerClient) FetchPage(ctx context.Context) (*FeedPage, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, errs.Wrap(errs.KindTransient, "rate limiter wait", err)
	}
	page, err := b.cb.Execute(func() (*FeedPage, error) {
		return b.client.FetchPage(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(circuitBreakerName, "rejected").Inc()
			return nil, errs.Wrap(errs.KindUpstream, "scanner circuit breaker open", err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(circuitBreakerName, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(circuitBreakerName).Set(float64(b.cb.Counts().ConsecutiveFailures))
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(circuitBreakerName, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(circuitBreakerName).Set(0)
	return page, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
