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
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Schema is the ordered set of logical column names a DataTable was created
// with. The type system proper (value representation, conversions) is out
// of scope (§1); the core only needs column identity and order.
type Schema struct {
	Name    string
	Columns []string
}

// activeBucket is one of a DataTable's small set of concurrently insertable
// tilegroups (§3, §4.B step 1). installer coordinates so that, when the
// active tilegroup fills up, exactly one goroutine installs its successor
// and every other racer waits for that result instead of each allocating
// its own tilegroup.
type activeBucket struct {
	current atomic.Pointer[TileGroup]
	installer singleflight.Group
}

// DataTable owns a growable set of TileGroups plus a small set of active
// buckets used to reduce insert contention (§3). Schema is fixed at
// creation; number_of_tuples is advisory and eventually consistent.
type DataTable struct {
	cat    *CatalogManager
	schema Schema

	tuplesPerTileGroup uint32
	activeBuckets      []*activeBucket

	indirection *IndirectionArray

	numberOfTuples atomic.Int64
	tileGroupCount atomic.Int64

	mu          sync.RWMutex
	tileGroupIDs []Oid

	constraints Constraints
}

// NewDataTable creates a table bound to cat's catalog, with activeCount
// concurrently insertable tilegroup buckets, each tuplesPerTileGroup slots
// wide, seeded with one freshly allocated tilegroup apiece.
func NewDataTable(cat *CatalogManager, schema Schema, tuplesPerTileGroup uint32, activeCount int) *DataTable {
	if activeCount < 1 {
		activeCount = 1
	}
	dt := &DataTable{
		cat:                cat,
		schema:             schema,
		tuplesPerTileGroup: tuplesPerTileGroup,
		activeBuckets:      make([]*activeBucket, activeCount),
	}
	iaID := cat.AllocateIndirectionArrayId()
	dt.indirection = NewIndirectionArray(iaID)
	cat.RegisterIndirectionArray(iaID, dt.indirection)
	for i := range dt.activeBuckets {
		b := &activeBucket{}
		tg := dt.newTileGroup()
		b.current.Store(tg)
		dt.activeBuckets[i] = b
	}
	return dt
}

// Schema returns the table's column order.
func (dt *DataTable) Schema() Schema { return dt.schema }

// NumberOfTuples returns the advisory, eventually consistent tuple count.
func (dt *DataTable) NumberOfTuples() int64 { return dt.numberOfTuples.Load() }

// TileGroupCount returns how many tilegroups this table has ever installed
// (used by S6's rollover assertion).
func (dt *DataTable) TileGroupCount() int64 { return dt.tileGroupCount.Load() }

func (dt *DataTable) newTileGroup() *TileGroup {
	id := dt.cat.AllocateTileGroupId()
	tg := NewTileGroup(id, dt.tuplesPerTileGroup, dt.schema.Columns)
	dt.cat.RegisterTileGroup(id, tg)
	dt.tileGroupCount.Add(1)
	dt.mu.Lock()
	dt.tileGroupIDs = append(dt.tileGroupIDs, id)
	dt.mu.Unlock()
	return tg
}

// Constraints returns the table's declared integrity rules, for a caller to
// register AddUnique/AddForeignKey constraints against.
func (dt *DataTable) Constraints() *Constraints { return &dt.constraints }

// maxInstallRetries bounds GetEmptyTupleSlot's installer loop. A healthy
// table (tuplesPerTileGroup >= 1) never comes close to it — it exists so a
// pathologically configured table (tuplesPerTileGroup == 0, every
// InsertTuple call exhausted on arrival) fails with ErrSlotAllocationFailed
// instead of spinning forever, per §7's "unrecoverable allocator failure".
const maxInstallRetries = 1 << 16

// GetEmptyTupleSlot implements §4.B step 2-4: pick a bucket by
// number_of_tuples mod active_count, reserve a slot on its current
// tilegroup, installing a fresh tilegroup via singleflight when the active
// one is exhausted so only one goroutine performs the install and every
// racer observes its result. If the returned offset is the tilegroup's last
// slot, proactively install its successor so the next caller never stalls
// on an empty bucket.
func (dt *DataTable) GetEmptyTupleSlot(tx TxnID, values map[string]any) (ItemPointer, error) {
	bucketIdx := int(uint64(dt.numberOfTuples.Load()) % uint64(len(dt.activeBuckets)))
	bucket := dt.activeBuckets[bucketIdx]

	for attempt := 0; attempt < maxInstallRetries; attempt++ {
		tg := bucket.current.Load()
		off, ok := tg.InsertTuple(tx, values)
		if !ok {
			dt.installSuccessor(bucket, tg)
			continue
		}
		dt.numberOfTuples.Add(1)
		if off+1 == tg.Capacity() {
			dt.installSuccessor(bucket, tg)
		}
		return ItemPointer{TileGroupID: tg.ID(), Offset: off}, nil
	}
	return ItemPointer{}, ErrSlotAllocationFailed
}

// installSuccessor ensures bucket.current has advanced past exhausted. Only
// one caller performs the actual allocation (singleflight); concurrent
// callers racing on the same exhausted tilegroup share its result.
func (dt *DataTable) installSuccessor(bucket *activeBucket, exhausted *TileGroup) {
	key := fmt.Sprintf("%d", exhausted.ID())
	bucket.installer.Do(key, func() (any, error) {
		if bucket.current.Load() == exhausted {
			bucket.current.Store(dt.newTileGroup())
		}
		return nil, nil
	})
}

// Indirection returns the table's IndirectionArray, for a reference primary
// index to resolve (§6) or for InsertNewTuple to publish a fresh cell at.
func (dt *DataTable) Indirection() *IndirectionArray { return dt.indirection }

// InsertNewTuple combines GetEmptyTupleSlot with allocation of the
// indirection cell a new logical tuple needs: the slot holds the physical
// values, the cell is what a primary index actually stores a pointer into
// (§6's primary-index contract). The cell is published to loc immediately;
// PerformInsert(tx, loc) still must be called to finish the rw-set
// bookkeeping and reserved-area initialization (§4.F).
func (dt *DataTable) InsertNewTuple(tx TxnID, values map[string]any) (loc ItemPointer, indirectionArrayID Oid, cell uint32, err error) {
	loc, err = dt.GetEmptyTupleSlot(tx, values)
	if err != nil {
		return ItemPointer{}, InvalidOid, 0, err
	}
	cell = dt.indirection.Allocate()
	dt.indirection.Set(cell, loc)
	return loc, dt.indirection.ID(), cell, nil
}

// Transform applies TransformTileGroup to the given tilegroup id using this
// table's canonical column order, the concrete entry point §4.B describes
// abstractly as "against the table's default partition". The returned
// TileGroup is the superseded one (nil if unchanged) — see
// TransformTileGroup's doc comment for the caller's release obligation.
func (dt *DataTable) Transform(tileGroupID Oid, theta float64) (bool, *TileGroup, error) {
	return TransformTileGroup(dt.cat, tileGroupID, dt.schema.Columns, theta)
}
