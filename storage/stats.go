/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

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
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/docker/go-units"
	"github.com/gorilla/websocket"
)

// StatsSink is the statistics hook interface of §4.I: counter bumps per
// operation kind, keyed by table name. The core never reads these back.
// PerformRead and PerformInsert bump read/insert under the table name their
// caller passes; update and delete counts are bumped by CommitTransaction,
// once per committed UPDATE/DELETE entry, under the empty table name.
type StatsSink interface {
	IncInsert(table string)
	IncUpdate(table string)
	IncDelete(table string)
	IncRead(table string)
}

// NopStats discards every counter bump; the default when a Db is built
// without an explicit sink.
type NopStats struct{}

func (NopStats) IncInsert(string) {}
func (NopStats) IncUpdate(string) {}
func (NopStats) IncDelete(string) {}
func (NopStats) IncRead(string)   {}

type tableCounters struct {
	inserts atomic.Int64
	updates atomic.Int64
	deletes atomic.Int64
	reads   atomic.Int64
}

// MemStats is an in-memory StatsSink, one set of atomic counters per table
// name, grounded on the teacher's cachemap.go (atomic counters behind a
// small guarded map). Every counter bump takes the map's mutex while it
// looks its table up; the counters themselves are atomic.
type MemStats struct {
	mu       chanMutex
	counters map[string]*tableCounters
}

// chanMutex is a channel-based mutex, the same lightweight idiom the
// teacher reaches for when a sync.Mutex would otherwise be fine but the
// surrounding code already threads everything through channels; here it
// guards the table-name map, on every entry() lookup as well as when a new
// table's counters are created.
type chanMutex chan struct{}

func newChanMutex() chanMutex {
	m := make(chanMutex, 1)
	m <- struct{}{}
	return m
}

func (m chanMutex) Lock()   { <-m }
func (m chanMutex) Unlock() { m <- struct{}{} }

// NewMemStats returns an empty in-memory stats sink.
func NewMemStats() *MemStats {
	return &MemStats{mu: newChanMutex(), counters: make(map[string]*tableCounters)}
}

func (s *MemStats) entry(table string) *tableCounters {
	s.mu.Lock()
	c, ok := s.counters[table]
	if !ok {
		c = &tableCounters{}
		s.counters[table] = c
	}
	s.mu.Unlock()
	return c
}

func (s *MemStats) IncInsert(table string) { s.entry(table).inserts.Add(1) }
func (s *MemStats) IncUpdate(table string) { s.entry(table).updates.Add(1) }
func (s *MemStats) IncDelete(table string) { s.entry(table).deletes.Add(1) }
func (s *MemStats) IncRead(table string)   { s.entry(table).reads.Add(1) }

// Snapshot is a point-in-time copy of one table's counters, in a shape
// that's convenient to marshal for a dashboard.
type Snapshot struct {
	Table   string `json:"table"`
	Inserts int64  `json:"inserts"`
	Updates int64  `json:"updates"`
	Deletes int64  `json:"deletes"`
	Reads   int64  `json:"reads"`
}

// Snapshots returns every table's current counters.
func (s *MemStats) Snapshots() []Snapshot {
	s.mu.Lock()
	names := make([]string, 0, len(s.counters))
	for name := range s.counters {
		names = append(names, name)
	}
	s.mu.Unlock()
	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		c := s.entry(name)
		out = append(out, Snapshot{
			Table:   name,
			Inserts: c.inserts.Load(),
			Updates: c.updates.Load(),
			Deletes: c.deletes.Load(),
			Reads:   c.reads.Load(),
		})
	}
	return out
}

// DashboardSink wraps a MemStats with a websocket broadcaster, the same
// live-dashboard shape the teacher's storage/dashboard.go exposes, but
// pushing StatsSink snapshots instead of memory-usage samples. HumanSize
// (docker/go-units) renders a rough working-set estimate alongside the
// counters for a human reading the page.
type DashboardSink struct {
	*MemStats
	upgrader websocket.Upgrader
	interval time.Duration
	history  *snapshotHistory
}

// NewDashboardSink wraps stats with a periodic websocket push every
// interval, retaining a short backlog of samples for clients that connect
// mid-stream.
func NewDashboardSink(stats *MemStats, interval time.Duration) *DashboardSink {
	return &DashboardSink{MemStats: stats, interval: interval, history: newSnapshotHistory(50 * interval)}
}

// History returns every sample recorded since t, for a client that wants to
// backfill its chart before the next live frame arrives.
func (d *DashboardSink) History(t time.Time) [][]Snapshot {
	return d.history.Since(t)
}

type dashboardFrame struct {
	Tables       []Snapshot `json:"tables"`
	WorkingSetEstimate string `json:"working_set_estimate"`
}

// ServeWS upgrades the request to a websocket and streams a dashboardFrame
// every interval until the client disconnects.
func (d *DashboardSink) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("storage: dashboard upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for range ticker.C {
		snaps := d.Snapshots()
		d.history.Record(time.Now(), snaps)
		var total int64
		for _, s := range snaps {
			total += s.Inserts + s.Updates + s.Deletes
		}
		frame := dashboardFrame{
			Tables:             snaps,
			WorkingSetEstimate: units.HumanSize(float64(total) * 64), // rough bytes-per-tuple guess
		}
		payload, err := json.Marshal(frame)
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
