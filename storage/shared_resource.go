/*
Copyright (C) 2025  Carl-Philip Hänsch

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

// SharedState describes a TileGroup's current access mode.
// COLD: refcount zero, nobody holding it; SHARED: one or more readers
// retained it; WRITE: a layout transform holds the exclusive slot.
type SharedState uint8

const (
	COLD   SharedState = 0
	SHARED SharedState = 1
	WRITE  SharedState = 2
)

// SharedResource marks a resource whose readers and the rare exclusive
// rewriter (TransformTileGroup) must coordinate without a dedicated lock per
// instance. GetRead/GetExclusive both return a release() func.
type SharedResource interface {
	GetState() SharedState
	GetRead() func()
	GetExclusive() func()
}

var _ SharedResource = (*TileGroup)(nil)

// GetState reports COLD once the refcount has dropped to zero, SHARED
// otherwise. A TileGroup starts with one reference of its own
// (NewTileGroup), so it stays SHARED until that reference is Released even
// if no reader has Retain'd it. TileGroup never holds WRITE on itself — layout transforms build
// a replacement and swap the catalog's registration instead of mutating a
// tilegroup in place, so "exclusive" is a property of the transform
// operation (see GetExclusive), not of any single TileGroup value.
func (tg *TileGroup) GetState() SharedState {
	if tg.RefCount() <= 0 {
		return COLD
	}
	return SHARED
}

// GetRead retains tg for the duration of a read and returns the matching
// Release.
func (tg *TileGroup) GetRead() func() {
	tg.Retain()
	return func() { tg.Release() }
}

// GetExclusive acquires one slot of the process-wide transform semaphore
// (limits.go), the same gate TransformTileGroup takes before rebuilding a
// tilegroup. The semaphore has runtime.NumCPU() slots, so holding one bounds
// how many transforms run at once; it does not keep other transforms out.
func (tg *TileGroup) GetExclusive() func() {
	return acquireTransformSlot()
}
