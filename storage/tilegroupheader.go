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

// reservedArea is the fixed-size per-slot area holding the spinlock and the
// last_reader_cid, per spec §3. It is initialized idempotently both on
// first hand-out and on GC recycling (Design Notes §9).
type reservedArea struct {
	lock       spinlock
	lastReader atomic.Uint64 // Cid, monotone non-decreasing (invariant I5)
	inited     atomic.Bool
}

// Init idempotently (re)initializes the reserved area. Safe to call
// repeatedly: a freshly allocated slice already zero-values everything, so
// Init only needs to reset lastReader on recycling reuse.
func (r *reservedArea) Init() {
	r.lastReader.Store(0)
	r.lock.state.Store(0)
	r.inited.Store(true)
}

// slotHeader holds the per-slot metadata described in spec §3. Only the
// slot's current owner (matched by txnID) may mutate beginCid/endCid/prev/
// next/indirection; readers of committed versions read lock-free, relying
// on the release/acquire semantics of txnID as the single synchronization
// point (§4.F ordering requirement, §5).
type slotHeader struct {
	txnID atomic.Uint64 // TxnID; release-store on commit/abort, acquire-load by readers

	beginCid Cid
	endCid   Cid

	prev ItemPointer
	next ItemPointer

	// indirectionArrayID/indirectionCell resolve the backpointer to this
	// version's chain head cell through the CatalogManager instead of a
	// raw pointer, breaking the index<->indirection<->header pointer cycle
	// (Design Notes §9).
	indirectionArrayID Oid
	indirectionCell    uint32

	reserved reservedArea
}

// TileGroupHeader is one record per slot of a TileGroup: a fixed-capacity,
// preallocated array so that a slot's address is stable for the tilegroup's
// lifetime (no reallocation ever moves an already-handed-out slot).
type TileGroupHeader struct {
	slots []slotHeader
}

// NewTileGroupHeader preallocates capacity slot records.
func NewTileGroupHeader(capacity uint32) *TileGroupHeader {
	return &TileGroupHeader{slots: make([]slotHeader, capacity)}
}

// Capacity returns the fixed number of slots this header was built for.
func (h *TileGroupHeader) Capacity() uint32 {
	return uint32(len(h.slots))
}

func (h *TileGroupHeader) slot(off uint32) *slotHeader {
	return &h.slots[off]
}

// GetTransactionId performs an acquire-load of the slot's owner.
func (h *TileGroupHeader) GetTransactionId(off uint32) TxnID {
	return TxnID(h.slot(off).txnID.Load())
}

// SetTransactionId performs a release-store of the slot's owner. Only the
// current owner (or the allocator, for a brand-new slot) may call this.
func (h *TileGroupHeader) SetTransactionId(off uint32, id TxnID) {
	h.slot(off).txnID.Store(uint64(id))
}

// CasTransactionId attempts to atomically transfer ownership from expected
// to newVal. This is the single enforcement point of invariant I4 (one
// writer) and the synchronization point required by §4.F/§5.
func (h *TileGroupHeader) CasTransactionId(off uint32, expected, newVal TxnID) bool {
	return h.slot(off).txnID.CompareAndSwap(uint64(expected), uint64(newVal))
}

// GetBeginCommitId / SetBeginCommitId: plain load/store, valid to call once
// the caller has established ownership or observed a released txnID.
func (h *TileGroupHeader) GetBeginCommitId(off uint32) Cid {
	return h.slot(off).beginCid
}

func (h *TileGroupHeader) SetBeginCommitId(off uint32, cid Cid) {
	h.slot(off).beginCid = cid
}

func (h *TileGroupHeader) GetEndCommitId(off uint32) Cid {
	return h.slot(off).endCid
}

func (h *TileGroupHeader) SetEndCommitId(off uint32, cid Cid) {
	h.slot(off).endCid = cid
}

func (h *TileGroupHeader) GetPrevItemPointer(off uint32) ItemPointer {
	return h.slot(off).prev
}

func (h *TileGroupHeader) SetPrevItemPointer(off uint32, ip ItemPointer) {
	h.slot(off).prev = ip
}

func (h *TileGroupHeader) GetNextItemPointer(off uint32) ItemPointer {
	return h.slot(off).next
}

func (h *TileGroupHeader) SetNextItemPointer(off uint32, ip ItemPointer) {
	h.slot(off).next = ip
}

// GetIndirection / SetIndirection address the backpointer to this version's
// chain-head indirection cell via (array id, cell index) rather than a raw
// pointer (Design Notes §9).
func (h *TileGroupHeader) GetIndirection(off uint32) (Oid, uint32) {
	s := h.slot(off)
	return s.indirectionArrayID, s.indirectionCell
}

func (h *TileGroupHeader) SetIndirection(off uint32, arrayID Oid, cell uint32) {
	s := h.slot(off)
	s.indirectionArrayID = arrayID
	s.indirectionCell = cell
}

// GetReservedFieldRef returns the raw reserved area for direct spinlock /
// last_reader_cid manipulation (used by SetLastReaderCommitId and slot
// (re)initialization).
func (h *TileGroupHeader) GetReservedFieldRef(off uint32) *reservedArea {
	return &h.slot(off).reserved
}

// GetLastReaderCommitId returns the current last_reader_cid without taking
// the spinlock (a monotone non-decreasing value — a torn read only ever
// under-reports, never invents a reader that didn't happen).
func (h *TileGroupHeader) GetLastReaderCommitId(off uint32) Cid {
	return Cid(h.slot(off).reserved.lastReader.Load())
}

// SetLastReaderCommitId implements §4.C: under the slot spinlock, refuse if
// another transaction currently owns the slot for writing; otherwise raise
// last_reader to max(last_reader, cid) and succeed. The lock is always
// released before returning, on every path (fast-return included), per the
// scoped-resource requirement in §5.
func (h *TileGroupHeader) SetLastReaderCommitId(off uint32, tx TxnID, cid Cid) bool {
	s := h.slot(off)
	s.reserved.lock.Lock()
	defer s.reserved.lock.Unlock()

	owner := TxnID(s.txnID.Load())
	if owner != InitialTxnID && owner != tx {
		return false // write-locked by another txn: read conflict
	}
	for {
		cur := Cid(s.reserved.lastReader.Load())
		if cid <= cur {
			break
		}
		if s.reserved.lastReader.CompareAndSwap(uint64(cur), uint64(cid)) {
			break
		}
	}
	return true
}

// InitSlot resets a slot's reserved area and indirection backpointer. Must
// be called exactly once when a slot is first handed out, and again
// (idempotently) whenever GC recycles it for reuse.
func (h *TileGroupHeader) InitSlot(off uint32) {
	s := h.slot(off)
	s.reserved.Init()
	s.prev = NullItemPointer
	s.next = NullItemPointer
	s.indirectionArrayID = InvalidOid
	s.indirectionCell = 0
}
