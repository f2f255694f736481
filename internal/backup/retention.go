// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package backup

import (
	"fmt"
	"os"
	"time"
)

// ApplyRetention deletes completed Snapshots that exceed cfg.Retention's
// Max count or MaxAgeDays, newest-first (teacher pattern: backup.RetentionPolicy
// enforcement in retention.go, reduced to the two limits this deployment
// uses). A Max or MaxAgeDays of 0 disables that limit. Failed snapshots
// are left for operator inspection rather than silently pruned.
func (m *Manager) ApplyRetention(now time.Time) ([]*Snapshot, error) {
	m.mu.Lock()
	man, err := m.loadManifest()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}

	keep := make([]*Snapshot, 0, len(man.Snapshots))
	var toDelete []*Snapshot
	completed := 0
	for i := len(man.Snapshots) - 1; i >= 0; i-- {
		snap := man.Snapshots[i]
		if snap.Status != StatusCompleted {
			keep = append(keep, snap)
			continue
		}
		completed++
		expired := m.cfg.Retention.MaxAgeDays > 0 && now.Sub(snap.CreatedAt) > time.Duration(m.cfg.Retention.MaxAgeDays)*24*time.Hour
		overCount := m.cfg.Retention.Max > 0 && completed > m.cfg.Retention.Max
		if expired || overCount {
			toDelete = append(toDelete, snap)
			continue
		}
		keep = append(keep, snap)
	}

	for i, j := 0, len(keep)-1; i < j; i, j = i+1, j-1 {
		keep[i], keep[j] = keep[j], keep[i]
	}
	man.Snapshots = keep
	if err := m.saveManifest(man); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()

	for _, snap := range toDelete {
		if err := os.Remove(snap.FilePath); err != nil && !os.IsNotExist(err) {
			return toDelete, fmt.Errorf("remove expired snapshot %s: %w", snap.FilePath, err)
		}
	}
	return toDelete, nil
}
