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

import "testing"

func TestDrainGCSetInvokesRecyclerForEveryEntry(t *testing.T) {
	tx := newTransaction(TxnID(1), Cid(1), false)
	tx.addToGCSet(ItemPointer{TileGroupID: 1, Offset: 0}, true)
	tx.addToGCSet(ItemPointer{TileGroupID: 1, Offset: 1}, false)

	var recycled []ItemPointer
	var deleteFlags []bool
	r := RecyclerFunc(func(tileGroupID Oid, offset uint32, deleteFromIndex bool) {
		recycled = append(recycled, ItemPointer{TileGroupID: tileGroupID, Offset: offset})
		deleteFlags = append(deleteFlags, deleteFromIndex)
	})
	DrainGCSet(tx, r)

	if len(recycled) != 2 {
		t.Fatalf("expected 2 recycle calls, got %d", len(recycled))
	}
}

func TestDrainGCSetOnEmptySetCallsNothing(t *testing.T) {
	tx := newTransaction(TxnID(1), Cid(1), false)
	calls := 0
	r := RecyclerFunc(func(Oid, uint32, bool) { calls++ })
	DrainGCSet(tx, r)
	if calls != 0 {
		t.Fatalf("expected no recycle calls on an empty gc_set, got %d", calls)
	}
}
