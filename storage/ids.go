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

// Oid identifies a catalog object (tilegroup, indirection array) within a process.
type Oid uint32

// InvalidOid marks an unallocated or dropped object.
const InvalidOid Oid = 0

// Cid is a commit-id: monotonically allocated, used both as read timestamp
// and commit timestamp of a transaction (timestamp ordering).
type Cid uint64

const (
	// InvalidCid marks a tombstoned version (end_cid of a deleted tuple).
	InvalidCid Cid = 0
	// MaxCid marks a version whose upper visibility bound is not yet fixed.
	MaxCid Cid = ^Cid(0)
	// startCid is the first commit-id handed out by a fresh cid generator.
	startCid Cid = 1
)

// TxnID identifies a transaction. Disjoint value space from Cid.
type TxnID uint64

const (
	// InitialTxnID marks a slot with no live owner (released/committed).
	InitialTxnID TxnID = 0
	// InvalidTxnID marks a logically deleted or aborted slot.
	InvalidTxnID TxnID = ^TxnID(0)
)

// oidGenerator hands out monotonically increasing catalog ids, never InvalidOid.
type oidGenerator struct {
	counter atomic.Uint32
}

func (g *oidGenerator) next() Oid {
	return Oid(g.counter.Add(1))
}

// cidGenerator hands out monotonically increasing commit-ids starting at startCid.
type cidGenerator struct {
	counter atomic.Uint64
}

func newCidGenerator() *cidGenerator {
	g := &cidGenerator{}
	g.counter.Store(uint64(startCid) - 1)
	return g
}

func (g *cidGenerator) next() Cid {
	return Cid(g.counter.Add(1))
}

// txnIDGenerator hands out monotonically increasing, never-zero transaction ids.
type txnIDGenerator struct {
	counter atomic.Uint64
}

func (g *txnIDGenerator) next() TxnID {
	return TxnID(g.counter.Add(1))
}
