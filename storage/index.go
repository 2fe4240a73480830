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
	"sync"

	"github.com/google/btree"
)

// indexEntry orders a primary index's keys.
type indexEntry struct {
	key     int64
	arrayID Oid
	cell    uint32
}

func indexEntryLess(a, b indexEntry) bool {
	return a.key < b.key
}

// PrimaryIndex is a reference implementation of the primary-index contract
// in §6: it stores IndirectionArray cell references, not ItemPointers, and
// resolves the currently visible version by walking the version chain at
// lookup time. This is demonstration code for consumers of the core, not
// part of the transactional core itself — the core never calls into this
// type.
type PrimaryIndex struct {
	cat *CatalogManager

	mu   sync.RWMutex
	tree *btree.BTreeG[indexEntry]
}

// NewPrimaryIndex builds an empty index bound to cat for chain resolution.
func NewPrimaryIndex(cat *CatalogManager) *PrimaryIndex {
	return &PrimaryIndex{cat: cat, tree: btree.NewG[indexEntry](32, indexEntryLess)}
}

// Insert registers key -> (indirectionArrayID, cell). Called once per
// logical tuple, right after DataTable.InsertNewTuple allocates its cell.
func (idx *PrimaryIndex) Insert(key int64, indirectionArrayID Oid, cell uint32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tree.ReplaceOrInsert(indexEntry{key: key, arrayID: indirectionArrayID, cell: cell})
}

// Delete removes key from the index (used when a txn's gc_set marks a slot
// delete_from_index=true and a Recycler has processed it).
func (idx *PrimaryIndex) Delete(key int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tree.Delete(indexEntry{key: key})
}

// LookupResult distinguishes "found and visible", "found but not visible to
// this reader", and "no such key" so callers can tell a deleted tuple from
// one that was never inserted.
type LookupResult uint8

const (
	LookupNotFound LookupResult = iota
	LookupDeleted
	LookupInvisible
	LookupFound
)

// Lookup implements §6's two-step contract: follow the index to the cell,
// load the head, then walk next pointers applying ClassifyVisibility until
// the first VISIBLE version is found. Each tilegroup visited along the
// chain is retained for the span of that one step (GetRead, §4.C note on
// readers looking up by id and holding a ref-counted handle only as long as
// they're actually touching it) rather than across the whole walk, since the
// next step re-resolves by id anyway.
func (idx *PrimaryIndex) Lookup(tx *Transaction, key int64) (loc ItemPointer, result LookupResult) {
	idx.mu.RLock()
	entry, ok := idx.tree.Get(indexEntry{key: key})
	idx.mu.RUnlock()
	if !ok {
		return ItemPointer{}, LookupNotFound
	}

	ia, err := idx.cat.GetIndirectionArray(entry.arrayID)
	if err != nil {
		return ItemPointer{}, LookupNotFound
	}

	cur := ia.Get(entry.cell)
	sawDeleted := false
	for !cur.IsNull() {
		tg, err := idx.cat.GetTileGroup(cur.TileGroupID)
		if err != nil {
			return ItemPointer{}, LookupNotFound
		}
		release := tg.GetRead()
		hdr := tg.Header()
		vis := ClassifyVisibility(hdr, cur.Offset, tx)
		next := hdr.GetNextItemPointer(cur.Offset)
		release()

		switch vis {
		case VisVisible:
			return cur, LookupFound
		case VisDeleted:
			sawDeleted = true
		}
		cur = next
	}
	if sawDeleted {
		return ItemPointer{}, LookupDeleted
	}
	return ItemPointer{}, LookupInvisible
}
