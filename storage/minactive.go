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

// activeCidItem orders entries in the multiset by cid value; duplicates
// (two txns sharing a begin_cid) are distinguished by a sequence number so
// btree.Set never silently drops one of them.
type activeCidItem struct {
	cid Cid
	seq uint64
}

func activeCidItemLess(a, b activeCidItem) bool {
	if a.cid != b.cid {
		return a.cid < b.cid
	}
	return a.seq < b.seq
}

// activeBeginSet is an ordered multiset of the begin_cid of every currently
// active transaction, backed by google/btree the way the teacher reaches
// for an ordered structure when it needs fast min/range queries rather than
// a bare map (see its use of ordered containers in partition.go's
// boundary search). MinActiveBeginCid is the lower bound §4.D's GC
// interface requires: no version with end_cid at or below it can still be
// observed by a live reader.
type activeBeginSet struct {
	mu   sync.Mutex
	tree *btree.BTreeG[activeCidItem]
	seq  uint64
}

func newActiveBeginSet() *activeBeginSet {
	return &activeBeginSet{tree: btree.NewG[activeCidItem](32, activeCidItemLess)}
}

func (s *activeBeginSet) insert(cid Cid) activeCidItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	item := activeCidItem{cid: cid, seq: s.seq}
	s.tree.ReplaceOrInsert(item)
	return item
}

func (s *activeBeginSet) remove(item activeCidItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Delete(item)
}

// min returns the smallest active begin_cid, or MaxCid if no transaction is
// currently active (nothing bounds the GC horizon, so the conservative
// answer is "everything is still visible").
func (s *activeBeginSet) min() Cid {
	s.mu.Lock()
	defer s.mu.Unlock()
	min, ok := s.tree.Min()
	if !ok {
		return MaxCid
	}
	return min.cid
}
