// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package backup

import (
	"fmt"
)

// RetentionPolicy bounds how many Snapshots accumulate in a Config's
// Dir. Both limits apply; a snapshot surviving Max must also be within
// MaxAgeDays, whichever is stricter (teacher pattern: backup.RetentionPolicy,
// reduced from its count/age/daily/weekly/monthly tiers to the two
// knobs this deployment's single backup directory actually needs).
type RetentionPolicy struct {
	Max        int
	MaxAgeDays int
}

// Config controls where snapshots are written and how they are pruned.
type Config struct {
	Dir             string
	CompressionGzip bool
	Retention       RetentionPolicy
}

// Validate reports configuration problems that would make CreateSnapshot
// or ApplyRetention misbehave.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("backup dir must not be empty")
	}
	if c.Retention.Max < 0 {
		return fmt.Errorf("backup retention max must not be negative")
	}
	if c.Retention.MaxAgeDays < 0 {
		return fmt.Errorf("backup retention max age days must not be negative")
	}
	return nil
}
