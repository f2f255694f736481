// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package scanner

import "time"

// Tuning constants from spec §4.2 step 5 and the error-escalation rule
// in step 2.
const (
	minInterval      = 6 * time.Second
	maxInterval      = 30 * time.Second
	overlapLow       = 0.25
	overlapHigh      = 0.40
	intervalStepDown = 500 * time.Millisecond
	intervalStepUp   = 1000 * time.Millisecond
	errorDoubleCap   = 120 * time.Second
)

// overlapRatio computes ρ = |O ∩ P| / |O| for the current page O
// against the previous page's id set P (spec §4.2 step 3). The first
// page (empty previous set) has ρ = 0.
func overlapRatio(current, previous map[string]struct{}) float64 {
	if len(current) == 0 || len(previous) == 0 {
		return 0
	}
	var intersection int
	for id := range current {
		if _, ok := previous[id]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(len(current))
}

// adjustForOverlap applies step 5's interval adjustment, rounded to
// the nearest 100ms.
func adjustForOverlap(current time.Duration, ratio float64) time.Duration {
	next := current
	switch {
	case ratio < overlapLow:
		next = current - intervalStepDown
		if next < minInterval {
			next = minInterval
		}
	case ratio > overlapHigh:
		next = current + intervalStepUp
		if next > maxInterval {
			next = maxInterval
		}
	}
	return roundTo100ms(next)
}

func roundTo100ms(d time.Duration) time.Duration {
	const step = 100 * time.Millisecond
	return ((d + step/2) / step) * step
}

// escalateForErrors applies step 2's consecutive-error escalation:
// three consecutive errors double the interval (capped at 120s); ten
// consecutive errors clamp to the max interval and reset the counter
// (the Design Note's "clamp-and-reset-counter" resolution — SPEC_FULL
// §9/Open Questions). Returns the possibly-adjusted interval and the
// possibly-reset error count.
func escalateForErrors(current time.Duration, consecutiveErrors int) (time.Duration, int) {
	if consecutiveErrors >= 10 {
		return maxInterval, 0
	}
	if consecutiveErrors >= 3 && consecutiveErrors%3 == 0 {
		doubled := current * 2
		if doubled > errorDoubleCap {
			doubled = errorDoubleCap
		}
		return doubled, consecutiveErrors
	}
	return current, consecutiveErrors
}
