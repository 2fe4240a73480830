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
	"sync/atomic"

	NonLockingReadMap "github.com/launix-de/NonLockingReadMap"
)

// TileGroup is a fixed-capacity block of append-only tuple slots, stored
// column-wise inside one logical tile per column (§3). Values are kept
// opaque (any) — the type system is explicitly out of scope for this core
// (§1); callers own value representation and conversion.
type TileGroup struct {
	id       Oid
	capacity uint32
	nextSlot atomic.Uint32 // fetch-and-add allocator (§4.B)

	header *TileGroupHeader

	columnOrder []string       // column order this tilegroup was laid out with
	columnIndex map[string]int // column_map: logical column -> tile-column offset
	columns     [][]any        // columns[tileColumnOffset][slotOffset]

	// freeSlots tracks offsets GC has recycled for reuse — a lock-free
	// growable bitmap, the same structure the teacher uses for shard
	// overlays (transaction.go's shardOverlay.Bitmap).
	freeSlots NonLockingReadMap.NonBlockingBitMap

	// refcount keeps a superseded TileGroup (post layout-transform) alive
	// until no reader can still hold a reference to it (§4.B note).
	refcount atomic.Int32
}

// NewTileGroup allocates a new, empty TileGroup with capacity slots and one
// column per name in columnNames.
func NewTileGroup(id Oid, capacity uint32, columnNames []string) *TileGroup {
	tg := &TileGroup{
		id:          id,
		capacity:    capacity,
		header:      NewTileGroupHeader(capacity),
		columnOrder: append([]string(nil), columnNames...),
		columnIndex: make(map[string]int, len(columnNames)),
		columns:     make([][]any, len(columnNames)),
	}
	for i, name := range columnNames {
		tg.columnIndex[name] = i
		tg.columns[i] = make([]any, capacity)
	}
	tg.refcount.Store(1)
	return tg
}

// ID returns the catalog id this tilegroup is (or was) registered under.
func (tg *TileGroup) ID() Oid {
	return tg.id
}

// Header returns the per-slot metadata array.
func (tg *TileGroup) Header() *TileGroupHeader {
	return tg.header
}

// Capacity returns the fixed slot capacity (tuples_per_tilegroup).
func (tg *TileGroup) Capacity() uint32 {
	return tg.capacity
}

// Retain/Release implement the ref-counting required for safe layout
// transformation: readers that looked this TileGroup up via the catalog
// retain it for the duration of their read.
func (tg *TileGroup) Retain() { tg.refcount.Add(1) }
func (tg *TileGroup) Release() int32 { return tg.refcount.Add(-1) }
func (tg *TileGroup) RefCount() int32 { return tg.refcount.Load() }

func (tg *TileGroup) setColumns(off uint32, values map[string]any) {
	for name, v := range values {
		if ci, ok := tg.columnIndex[name]; ok {
			tg.columns[ci][off] = v
		}
	}
}

// GetValue reads a single column's value at a slot.
func (tg *TileGroup) GetValue(off uint32, column string) (any, bool) {
	ci, ok := tg.columnIndex[column]
	if !ok {
		return nil, false
	}
	return tg.columns[ci][off], true
}

// GetTuple reads every column's value at a slot.
func (tg *TileGroup) GetTuple(off uint32) map[string]any {
	result := make(map[string]any, len(tg.columnIndex))
	for name, ci := range tg.columnIndex {
		result[name] = tg.columns[ci][off]
	}
	return result
}

// InsertTuple reserves the next unused slot via fetch-and-add (§4.B). If the
// tilegroup is exhausted, ok is false and the caller must rotate to a new
// tilegroup. If values is non-nil, its columns are copied into the slot; if
// nil, the slot is left uninitialized (used for update/delete empty
// versions per §4.F PerformUpdate/PerformDelete). The slot's ownership is
// published to tx here per the version lifecycle's "Allocated" step.
func (tg *TileGroup) InsertTuple(tx TxnID, values map[string]any) (uint32, bool) {
	idx := tg.nextSlot.Add(1) - 1
	if idx >= tg.capacity {
		return 0, false
	}
	if values != nil {
		tg.setColumns(idx, values)
	}
	tg.header.InitSlot(idx)
	tg.header.SetBeginCommitId(idx, MaxCid)
	tg.header.SetEndCommitId(idx, MaxCid)
	tg.header.SetTransactionId(idx, tx) // release-publish: slot now owned by tx
	return idx, true
}

// Recycle marks an offset as free for reuse and idempotently resets its
// reserved area, per §3 lifecycle step 5 ("Recycled"). It does not reset
// nextSlot — this tilegroup remains append-only; the free bitmap lets an
// external allocator choose to reuse the slot via a future extension
// without violating append-only semantics for new slots.
func (tg *TileGroup) Recycle(off uint32) {
	tg.freeSlots.Set(off, true)
	tg.header.InitSlot(off)
	tg.header.SetTransactionId(off, InvalidTxnID)
	tg.header.SetBeginCommitId(off, InvalidCid)
	tg.header.SetEndCommitId(off, InvalidCid)
}

// IsFree reports whether offset off has been recycled by GC.
func (tg *TileGroup) IsFree(off uint32) bool {
	return tg.freeSlots.Get(off)
}

// FreeCount returns the number of recycled slots.
func (tg *TileGroup) FreeCount() uint {
	return tg.freeSlots.Count()
}

// ColumnOrder returns the column layout this tilegroup was built with, used
// by TransformTileGroup to score divergence against a table's canonical
// order.
func (tg *TileGroup) ColumnOrder() []string {
	return tg.columnOrder
}

// AllocatedSlots returns the number of slots handed out so far, clamped to
// Capacity: a failed InsertTuple still advances nextSlot past capacity, but
// the value returned here never exceeds it.
func (tg *TileGroup) AllocatedSlots() uint32 {
	n := tg.nextSlot.Load()
	if n > tg.capacity {
		return tg.capacity
	}
	return n
}
