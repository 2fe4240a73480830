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

import "sync"

// indirectionCell is a single atomic single-word location holding the
// current head ItemPointer of one logical tuple's version chain. Changing
// the head is a single atomic pointer write (CAS).
type indirectionCell struct {
	head atomicItemPointer
}

// IndirectionArray is a dense, append-only array of indirection cells.
// Primary-index entries point into a cell here, not directly at a slot.
type IndirectionArray struct {
	id Oid

	mu    sync.Mutex // guards structural growth of cells only
	cells []*indirectionCell
}

// NewIndirectionArray creates an empty array registered under id.
func NewIndirectionArray(id Oid) *IndirectionArray {
	return &IndirectionArray{id: id}
}

// ID returns the catalog id this array is registered under.
func (ia *IndirectionArray) ID() Oid {
	return ia.id
}

// Allocate appends a new cell initialized to the null ItemPointer and
// returns its index. Cell pointers are stable for the array's lifetime:
// once appended, a *indirectionCell is never moved, only grown-around.
func (ia *IndirectionArray) Allocate() uint32 {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	idx := uint32(len(ia.cells))
	cell := &indirectionCell{}
	cell.head.Store(NullItemPointer)
	ia.cells = append(ia.cells, cell)
	return idx
}

// cellAt returns the cell at idx; panics on out-of-range index, which
// indicates a corrupted header (fatal per §7 propagation policy).
func (ia *IndirectionArray) cellAt(idx uint32) *indirectionCell {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	if int(idx) >= len(ia.cells) {
		panic("indirection: cell index out of range — corrupted header")
	}
	return ia.cells[idx]
}

// Get atomically loads the current head ItemPointer of cell idx.
func (ia *IndirectionArray) Get(idx uint32) ItemPointer {
	return ia.cellAt(idx).head.Load()
}

// Set atomically stores a new head, unconditionally. Used to initialize a
// freshly allocated cell at insert time.
func (ia *IndirectionArray) Set(idx uint32, ip ItemPointer) {
	ia.cellAt(idx).head.Store(ip)
}

// CAS atomically swings the head from old to newVal, iff it is still old.
// This is the single synchronization point that publishes a new version (or
// restores the previous head on abort) per §4.F's PerformUpdate/AbortTransaction.
func (ia *IndirectionArray) CAS(idx uint32, old, newVal ItemPointer) bool {
	return ia.cellAt(idx).head.CompareAndSwap(old, newVal)
}
