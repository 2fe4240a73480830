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

import "sync/atomic"

// atomicItemPointer packs an ItemPointer's two uint32 fields into a single
// uint64 so it can be read/written/compare-and-swapped with a single
// lock-free atomic.Uint64, the same "one word, one CAS" idiom
// NonLockingReadMap's NonBlockingBitMap uses for its cells.
type atomicItemPointer struct {
	word atomic.Uint64
}

func packItemPointer(p ItemPointer) uint64 {
	return uint64(p.TileGroupID)<<32 | uint64(p.Offset)
}

func unpackItemPointer(w uint64) ItemPointer {
	return ItemPointer{TileGroupID: Oid(w >> 32), Offset: uint32(w)}
}

func (a *atomicItemPointer) Load() ItemPointer {
	return unpackItemPointer(a.word.Load())
}

func (a *atomicItemPointer) Store(p ItemPointer) {
	a.word.Store(packItemPointer(p))
}

func (a *atomicItemPointer) CompareAndSwap(old, newVal ItemPointer) bool {
	return a.word.CompareAndSwap(packItemPointer(old), packItemPointer(newVal))
}
