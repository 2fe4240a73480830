/*
Copyright (C) 2025-2026  MemCP Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package storage

import (
	"sync"
	"sync/atomic"
	"time"
)

// snapshotEntry is one retained history sample: a StatsSink snapshot tagged
// with the time it was taken, stored with the same lock-free lastUsed
// pattern the teacher's cache layer uses for LRU scoring — here repurposed
// for age-based eviction instead of access-recency eviction.
type snapshotEntry struct {
	takenAtNano atomic.Int64
	samples     []Snapshot
}

// snapshotHistory retains a bounded window of StatsSink samples for
// DashboardSink clients that connect mid-stream and want recent history,
// not just the next live frame. Entries older than retention are dropped
// lazily on insert.
type snapshotHistory struct {
	mu        sync.RWMutex
	entries   []*snapshotEntry
	retention time.Duration
}

// newSnapshotHistory builds a history keeping samples for up to retention.
func newSnapshotHistory(retention time.Duration) *snapshotHistory {
	return &snapshotHistory{retention: retention}
}

// Record appends a new sample, tagged with takenAt (supplied by the caller),
// and evicts anything older than retention relative to takenAt.
func (h *snapshotHistory) Record(takenAt time.Time, samples []Snapshot) {
	entry := &snapshotEntry{samples: samples}
	entry.takenAtNano.Store(takenAt.UnixNano())

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	cutoff := takenAt.Add(-h.retention).UnixNano()
	kept := h.entries[:0]
	for _, e := range h.entries {
		if e.takenAtNano.Load() >= cutoff {
			kept = append(kept, e)
		}
	}
	h.entries = kept
}

// Since returns every retained sample taken at or after t.
func (h *snapshotHistory) Since(t time.Time) [][]Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cutoff := t.UnixNano()
	out := make([][]Snapshot, 0, len(h.entries))
	for _, e := range h.entries {
		if e.takenAtNano.Load() >= cutoff {
			out = append(out, e.samples)
		}
	}
	return out
}

// Len reports how many samples are currently retained.
func (h *snapshotHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
