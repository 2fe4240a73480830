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

import "sort"

// Recycler is the external garbage collector's contract (§4.D). The txn
// manager produces gc_set entries at commit/abort but performs no
// reclamation itself; a Recycler consumes them once it has established that
// no active transaction can still observe the slot (begin_cid beyond
// MinActiveBeginCid()).
type Recycler interface {
	// Recycle reclaims a slot. deleteFromIndex tells the recycler whether
	// the primary index still carries an entry that must be removed.
	Recycle(tileGroupID Oid, offset uint32, deleteFromIndex bool)
}

// RecyclerFunc adapts a plain function to Recycler, the same "func as
// interface" idiom the teacher uses for its scm builtin closures.
type RecyclerFunc func(tileGroupID Oid, offset uint32, deleteFromIndex bool)

func (f RecyclerFunc) Recycle(tileGroupID Oid, offset uint32, deleteFromIndex bool) {
	f(tileGroupID, offset, deleteFromIndex)
}

// DrainGCSet hands every entry of a finished transaction's gc_set to r, in
// ItemPointer order for deterministic test output. Callers typically run
// this only once MinActiveBeginCid() has advanced past the entries'
// end_cid.
func DrainGCSet(tx *Transaction, r Recycler) {
	gcSet := tx.GCSet()
	locs := make([]ItemPointer, 0, len(gcSet))
	for loc := range gcSet {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool {
		if locs[i].TileGroupID != locs[j].TileGroupID {
			return locs[i].TileGroupID < locs[j].TileGroupID
		}
		return locs[i].Offset < locs[j].Offset
	})
	for _, loc := range locs {
		r.Recycle(loc.TileGroupID, loc.Offset, gcSet[loc])
	}
}
