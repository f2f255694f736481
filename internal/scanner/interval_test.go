// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package scanner

import (
	"testing"
	"time"
)

func TestOverlapRatio(t *testing.T) {
	cases := []struct {
		name     string
		current  map[string]struct{}
		previous map[string]struct{}
		want     float64
	}{
		{"empty previous", set("a", "b"), nil, 0},
		{"empty current", nil, set("a", "b"), 0},
		{"no overlap", set("a", "b"), set("c", "d"), 0},
		{"full overlap", set("a", "b"), set("a", "b"), 1},
		{"half overlap", set("a", "b"), set("a", "c"), 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := overlapRatio(tc.current, tc.previous)
			if got != tc.want {
				t.Errorf("overlapRatio() = %v, want %v", got, tc.want)
			}
		})
	}
}

func set(ids ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func TestAdjustForOverlap(t *testing.T) {
	cases := []struct {
		name    string
		current time.Duration
		ratio   float64
		want    time.Duration
	}{
		{"low overlap steps down", 10 * time.Second, 0.1, 9500 * time.Millisecond},
		{"low overlap floors at min", minInterval, 0.1, minInterval},
		{"high overlap steps up", 10 * time.Second, 0.5, 11 * time.Second},
		{"high overlap caps at max", maxInterval, 0.9, maxInterval},
		{"steady band unchanged", 10 * time.Second, 0.3, 10 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := adjustForOverlap(tc.current, tc.ratio)
			if got != tc.want {
				t.Errorf("adjustForOverlap(%v, %v) = %v, want %v", tc.current, tc.ratio, got, tc.want)
			}
		})
	}
}

func TestRoundTo100ms(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want time.Duration
	}{
		{9543 * time.Millisecond, 9500 * time.Millisecond},
		{9550 * time.Millisecond, 9600 * time.Millisecond},
		{9500 * time.Millisecond, 9500 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := roundTo100ms(tc.in); got != tc.want {
			t.Errorf("roundTo100ms(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestEscalateForErrors(t *testing.T) {
	cases := []struct {
		name         string
		current      time.Duration
		consecutive  int
		wantInterval time.Duration
		wantCount    int
	}{
		{"below threshold unchanged", 10 * time.Second, 2, 10 * time.Second, 2},
		{"third error doubles", 10 * time.Second, 3, 20 * time.Second, 3},
		{"sixth error doubles again", 20 * time.Second, 6, 40 * time.Second, 6},
		{"doubling capped at 120s", 100 * time.Second, 9, errorDoubleCap, 9},
		{"between steps unchanged", 10 * time.Second, 4, 10 * time.Second, 4},
		{"tenth error clamps and resets", 5 * time.Second, 10, maxInterval, 0},
		{"above ten clamps and resets", 5 * time.Second, 15, maxInterval, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotInterval, gotCount := escalateForErrors(tc.current, tc.consecutive)
			if gotInterval != tc.wantInterval || gotCount != tc.wantCount {
				t.Errorf("escalateForErrors(%v, %d) = (%v, %d), want (%v, %d)",
					tc.current, tc.consecutive, gotInterval, gotCount, tc.wantInterval, tc.wantCount)
			}
		})
	}
}

// TestSteadyStateOverlapStaysInBand exercises property P8: under a
// steady alternating overlap signal, the interval should settle inside
// [minInterval, maxInterval] and the adjustment should never overshoot
// past either bound across a 6-cycle window.
func TestSteadyStateOverlapStaysInBand(t *testing.T) {
	interval := 10 * time.Second
	ratios := []float64{0.2, 0.45, 0.2, 0.45, 0.2, 0.45}
	for _, r := range ratios {
		interval = adjustForOverlap(interval, r)
		if interval < minInterval || interval > maxInterval {
			t.Fatalf("interval %v left [%v, %v] band", interval, minInterval, maxInterval)
		}
	}
}
