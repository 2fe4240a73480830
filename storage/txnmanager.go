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

// TimestampOrderingTransactionManager is §4.F's core: visibility, ownership,
// PerformRead/Insert/Update/Delete, Commit/Abort. It never touches a
// TileGroup's values directly, only header metadata and indirection cells;
// value mutation is the executor's job.
type TimestampOrderingTransactionManager struct {
	cat *CatalogManager

	txnIDs txnIDGenerator
	cids    cidGenerator
	active  activeBeginSet

	mu         sync.Mutex
	activeByID map[TxnID]activeCidItem

	logger       Logger
	stats        StatsSink
	checkpointer Checkpointer
}

// NewTimestampOrderingTransactionManager builds a transaction manager bound
// to cat, the same CatalogManager a Db hands to every DataTable it creates,
// so tilegroups registered through table creation are the same ones
// PerformRead/Insert/Update/Delete resolve against.
func NewTimestampOrderingTransactionManager(cat *CatalogManager, logger Logger, stats StatsSink) *TimestampOrderingTransactionManager {
	if logger == nil {
		logger = NopLogger{}
	}
	if stats == nil {
		stats = NopStats{}
	}
	return &TimestampOrderingTransactionManager{
		cat:        cat,
		cids:       *newCidGenerator(),
		active:     *newActiveBeginSet(),
		activeByID: make(map[TxnID]activeCidItem),
		logger:     logger,
		stats:      stats,
	}
}

// Catalog returns the manager's CatalogManager, so a Db can expose a single
// consistent catalog to both table creation and transaction handling.
func (m *TimestampOrderingTransactionManager) Catalog() *CatalogManager { return m.cat }

// SetCheckpointer registers an optional checkpoint-boundary hook (§10 item
// 3), invoked from CommitTransaction alongside the WAL calls. nil disables
// it, which is also the default.
func (m *TimestampOrderingTransactionManager) SetCheckpointer(cp Checkpointer) {
	m.checkpointer = cp
}

// BeginTransaction allocates a fresh txn-id and begin_cid and registers the
// begin_cid as active, so MinActiveBeginCid reflects it until EndTransaction
// runs. Read-only transactions still register (a reader's begin_cid still
// bounds the GC horizon) but never populate the rw/gc-set machinery.
func (m *TimestampOrderingTransactionManager) BeginTransaction(readOnly bool) *Transaction {
	id := m.txnIDs.next()
	begin := m.cids.next()
	tx := newTransaction(id, begin, readOnly)

	item := m.active.insert(begin)
	m.mu.Lock()
	m.activeByID[id] = item
	m.mu.Unlock()

	return tx
}

// MinActiveBeginCid is the lower bound §4.D's GC interface requires: no
// version whose end_cid is at or below this value can still be observed by
// any live reader.
func (m *TimestampOrderingTransactionManager) MinActiveBeginCid() Cid {
	return m.active.min()
}

func (m *TimestampOrderingTransactionManager) header(loc ItemPointer) (*TileGroupHeader, uint32, error) {
	tg, err := m.cat.GetTileGroup(loc.TileGroupID)
	if err != nil {
		return nil, 0, err
	}
	return tg.Header(), loc.Offset, nil
}

// PerformRead implements §4.F PerformRead(location, acquire_ownership).
func (m *TimestampOrderingTransactionManager) PerformRead(tx *Transaction, loc ItemPointer, acquireOwnership bool, tableName string) bool {
	hdr, off, err := m.header(loc)
	if err != nil {
		return false
	}

	if acquireOwnership && !IsOwner(hdr, off, tx.ID) {
		if !IsOwnable(hdr, off) {
			return false
		}
		if !AcquireOwnership(hdr, off, tx.ID) {
			return false
		}
		if !tx.IsReadOnly {
			tx.record(loc, RWReadOwn, NullItemPointer)
		}
	}

	if IsOwner(hdr, off, tx.ID) {
		if hdr.GetLastReaderCommitId(off) > tx.BeginCid {
			panic("storage: last_reader_cid exceeds reading txn's begin_cid")
		}
		m.stats.IncRead(tableName)
		return true
	}

	if hdr.SetLastReaderCommitId(off, tx.ID, tx.BeginCid) {
		if !tx.IsReadOnly {
			tx.record(loc, RWRead, NullItemPointer)
		}
		m.stats.IncRead(tableName)
		return true
	}
	return false
}

// PerformInsert implements §4.F PerformInsert(location, index_entry_ptr).
// The slot's txn-id was already set to T at allocation (TileGroup.InsertTuple);
// this call finishes wiring the reserved area and the indirection backpointer
// and records the rw-set entry.
func (m *TimestampOrderingTransactionManager) PerformInsert(tx *Transaction, loc ItemPointer, indirectionArrayID Oid, cell uint32, tableName string) error {
	if tx.Result != ResultUnknown {
		return ErrTransactionNotActive
	}
	hdr, off, err := m.header(loc)
	if err != nil {
		return err
	}
	hdr.InitSlot(off)
	hdr.SetIndirection(off, indirectionArrayID, cell)
	tx.record(loc, RWInsert, NullItemPointer)
	m.stats.IncInsert(tableName)
	return nil
}

// PerformUpdate implements the chain-linking overload of §4.F PerformUpdate:
// T must already own oldLoc (via a prior PerformRead(acquire_ownership=true)
// or an owned insert); newLoc must be a freshly allocated, still-owned slot.
// The rw-set entry is keyed at oldLoc, mirroring CommitTransaction/
// AbortTransaction's convention of deriving the linked new version from
// hdr_old.prev rather than storing it separately.
func (m *TimestampOrderingTransactionManager) PerformUpdate(tx *Transaction, oldLoc, newLoc ItemPointer) bool {
	oldHdr, oldOff, err := m.header(oldLoc)
	if err != nil {
		return false
	}
	newHdr, newOff, err := m.header(newLoc)
	if err != nil {
		return false
	}
	if !IsOwner(oldHdr, oldOff, tx.ID) {
		return false
	}

	oldPrev := oldHdr.GetPrevItemPointer(oldOff)
	oldHdr.SetPrevItemPointer(oldOff, newLoc)
	newHdr.SetPrevItemPointer(newOff, oldPrev)
	newHdr.SetNextItemPointer(newOff, oldLoc)
	newHdr.SetTransactionId(newOff, tx.ID) // release: new version fully linked before publish

	if !oldPrev.IsNull() {
		prevHdr, prevOff, err := m.header(oldPrev)
		if err != nil {
			panic("storage: dangling prev pointer — corrupted chain")
		}
		prevHdr.SetNextItemPointer(prevOff, newLoc)
	} else {
		arrayID, cellIdx := oldHdr.GetIndirection(oldOff)
		newHdr.SetIndirection(newOff, arrayID, cellIdx)
		ia, err := m.cat.GetIndirectionArray(arrayID)
		if err != nil {
			panic("storage: chain head with unknown indirection array — corrupted header")
		}
		if !ia.CAS(cellIdx, oldLoc, newLoc) {
			panic("storage: indirection head CAS failed under exclusive ownership — corrupted chain")
		}
	}

	newHdr.GetReservedFieldRef(newOff).Init()
	tx.record(oldLoc, RWUpdate, NullItemPointer)
	return true
}

// PerformUpdateInPlace implements the in-place overload: the executor has
// already mutated the owned slot's payload directly; this call only updates
// the rw-set, recording the predecessor in the chain if any exists.
func (m *TimestampOrderingTransactionManager) PerformUpdateInPlace(tx *Transaction, loc ItemPointer) bool {
	hdr, off, err := m.header(loc)
	if err != nil {
		return false
	}
	if !IsOwner(hdr, off, tx.ID) {
		return false
	}
	if next := hdr.GetNextItemPointer(off); !next.IsNull() {
		tx.record(next, RWUpdate, NullItemPointer)
	}
	return true
}

// PerformDelete implements the chain-linking overload of §4.F PerformDelete:
// identical linkage to PerformUpdate, with the new version additionally
// tombstoned (end_cid = INVALID_CID).
func (m *TimestampOrderingTransactionManager) PerformDelete(tx *Transaction, oldLoc, newLoc ItemPointer) bool {
	if !m.PerformUpdate(tx, oldLoc, newLoc) {
		return false
	}
	newHdr, newOff, err := m.header(newLoc)
	if err != nil {
		panic("storage: newLoc vanished between link and tombstone")
	}
	newHdr.SetEndCommitId(newOff, InvalidCid)
	tx.record(oldLoc, RWDelete, NullItemPointer)
	return true
}

// PerformDeleteInPlace implements the in-place delete overload: tombstones
// the owned slot and records DELETE against its predecessor, or against
// location itself if this slot is the chain head. If the same transaction
// already recorded an INSERT at loc, the entry is promoted to INS_DEL
// instead of DELETE (§4.F commit-time INS_DEL handling).
func (m *TimestampOrderingTransactionManager) PerformDeleteInPlace(tx *Transaction, loc ItemPointer) bool {
	hdr, off, err := m.header(loc)
	if err != nil {
		return false
	}
	if !IsOwner(hdr, off, tx.ID) {
		return false
	}
	hdr.SetEndCommitId(off, InvalidCid)

	key := hdr.GetNextItemPointer(off)
	if key.IsNull() {
		key = loc
	}
	if existing, ok := tx.rwSet[loc]; ok && existing.kind == RWInsert {
		tx.record(loc, RWInsDel, NullItemPointer)
		return true
	}
	tx.record(key, RWDelete, NullItemPointer)
	return true
}

// CommitTransaction implements §4.F CommitTransaction(T).
func (m *TimestampOrderingTransactionManager) CommitTransaction(tx *Transaction) TxnResult {
	if tx.IsReadOnly {
		tx.Result = ResultSuccess
		m.EndTransaction(tx)
		return tx.Result
	}

	endCommitCid := tx.BeginCid
	m.logger.LogBeginTransaction(endCommitCid)

	for loc, entry := range tx.rwSet {
		hdr, off, err := m.header(loc)
		if err != nil {
			panic("storage: rw-set entry references an unknown tilegroup at commit")
		}

		switch entry.kind {
		case RWReadOwn:
			if !YieldOwnership(hdr, off, tx.ID) {
				panic("storage: failed to release READ_OWN ownership at commit")
			}

		case RWUpdate:
			newLoc := hdr.GetPrevItemPointer(off)
			newHdr, newOff, err := m.header(newLoc)
			if err != nil {
				panic("storage: UPDATE rw-set entry missing linked new version")
			}
			newHdr.SetBeginCommitId(newOff, endCommitCid)
			newHdr.SetEndCommitId(newOff, hdr.GetEndCommitId(off))
			hdr.SetEndCommitId(off, endCommitCid)
			newHdr.SetTransactionId(newOff, InitialTxnID) // release
			hdr.SetTransactionId(off, InitialTxnID)       // release
			tx.addToGCSet(loc, false)
			m.logger.LogUpdate(endCommitCid, loc, newLoc)
			m.stats.IncUpdate("")

		case RWDelete:
			newLoc := hdr.GetPrevItemPointer(off)
			if newLoc.IsNull() {
				// in-place delete of a slot with no newer version: the slot
				// itself already carries the tombstone end_cid
				hdr.SetTransactionId(off, InvalidTxnID)
				tx.addToGCSet(loc, true)
				m.logger.LogDelete(endCommitCid, loc)
				m.stats.IncDelete("")
				break
			}
			newHdr, newOff, err := m.header(newLoc)
			if err != nil {
				panic("storage: DELETE rw-set entry missing linked new version")
			}
			newHdr.SetBeginCommitId(newOff, endCommitCid)
			newHdr.SetEndCommitId(newOff, InvalidCid) // keep the tombstone set by PerformDelete
			hdr.SetEndCommitId(off, endCommitCid)
			newHdr.SetTransactionId(newOff, InvalidTxnID) // tombstoned version is dead, not free
			hdr.SetTransactionId(off, InitialTxnID)
			tx.addToGCSet(loc, true)
			tx.addToGCSet(newLoc, false)
			m.logger.LogDelete(endCommitCid, loc)
			m.stats.IncDelete("")

		case RWInsert:
			hdr.SetBeginCommitId(off, endCommitCid)
			hdr.SetEndCommitId(off, MaxCid)
			hdr.SetTransactionId(off, InitialTxnID) // release
			m.logger.LogInsert(endCommitCid, loc)

		case RWInsDel:
			hdr.SetBeginCommitId(off, MaxCid)
			hdr.SetEndCommitId(off, MaxCid)
			hdr.SetTransactionId(off, InvalidTxnID)
			tx.addToGCSet(loc, true)
		}
	}

	if m.checkpointer != nil {
		m.checkpointer.OnCommitBoundary(endCommitCid)
	}

	tx.Result = ResultSuccess
	m.EndTransaction(tx)
	return tx.Result
}

// AbortTransaction implements §4.F AbortTransaction(T).
func (m *TimestampOrderingTransactionManager) AbortTransaction(tx *Transaction) TxnResult {
	if !tx.IsReadOnly {
		for loc, entry := range tx.rwSet {
			hdr, off, err := m.header(loc)
			if err != nil {
				panic("storage: rw-set entry references an unknown tilegroup at abort")
			}

			switch entry.kind {
			case RWReadOwn:
				if !YieldOwnership(hdr, off, tx.ID) {
					panic("storage: failed to release READ_OWN ownership at abort")
				}

			case RWUpdate, RWDelete:
				newLoc := hdr.GetPrevItemPointer(off)
				newHdr, newOff, err := m.header(newLoc)
				if err != nil {
					panic("storage: aborting UPDATE/DELETE missing linked new version")
				}
				newHdr.SetBeginCommitId(newOff, MaxCid)
				newHdr.SetEndCommitId(newOff, MaxCid)

				oldPrev := newHdr.GetPrevItemPointer(newOff)
				if oldPrev.IsNull() {
					arrayID, cellIdx := hdr.GetIndirection(off)
					ia, err := m.cat.GetIndirectionArray(arrayID)
					if err != nil {
						panic("storage: abort unlink of unknown indirection array")
					}
					if !ia.CAS(cellIdx, newLoc, loc) {
						panic("storage: abort indirection CAS failed — concurrent mutation under exclusive ownership")
					}
				} else {
					prevHdr, prevOff, err := m.header(oldPrev)
					if err != nil {
						panic("storage: abort unlink dangling prev pointer")
					}
					prevHdr.SetNextItemPointer(prevOff, loc)
				}
				hdr.SetPrevItemPointer(off, oldPrev)
				newHdr.SetTransactionId(newOff, InvalidTxnID)
				hdr.SetTransactionId(off, InitialTxnID) // release
				tx.addToGCSet(newLoc, false)

			case RWInsert, RWInsDel:
				hdr.SetBeginCommitId(off, MaxCid)
				hdr.SetEndCommitId(off, MaxCid)
				hdr.SetTransactionId(off, InvalidTxnID) // release
				tx.addToGCSet(loc, true)
			}
		}
	}

	tx.Result = ResultAborted
	m.EndTransaction(tx)
	return tx.Result
}

// EndTransaction removes tx's begin_cid from the active set, advancing
// MinActiveBeginCid once tx can no longer bound anyone's GC horizon.
func (m *TimestampOrderingTransactionManager) EndTransaction(tx *Transaction) {
	m.mu.Lock()
	item, ok := m.activeByID[tx.ID]
	delete(m.activeByID, tx.ID)
	m.mu.Unlock()
	if ok {
		m.active.remove(item)
	}
}

// Savepoint captures a transaction's rw-set length at a point in time, so
// RollbackToSavepoint can undo exactly the entries recorded since, without
// aborting the transaction outright. Grounded on the teacher's own
// Savepoint/CreateSavepoint/RollbackToSavepoint in transaction.go, adapted
// from undo-log/overlay-length replay to this core's rw-set-order replay —
// the transaction itself stays explicit everywhere per Design Notes §9, so
// these live on the manager alongside Commit/Abort rather than on
// Transaction itself.
type Savepoint struct {
	rwLen int
}

// CreateSavepoint records tx's current rw-set length. Read-only
// transactions never populate a rw-set, so their savepoint is always empty.
func (m *TimestampOrderingTransactionManager) CreateSavepoint(tx *Transaction) Savepoint {
	return Savepoint{rwLen: len(tx.rwOrder)}
}

// RollbackToSavepoint unwinds every rw-set entry recorded after sp was
// captured, newest first, using the same per-kind unwind AbortTransaction
// applies — except the slot a surviving UPDATE/DELETE's predecessor owns
// stays owned by tx (the transaction itself is not ending), and
// EndTransaction is never called. tx remains active and may keep reading,
// writing, or take further savepoints afterward.
func (m *TimestampOrderingTransactionManager) RollbackToSavepoint(tx *Transaction, sp Savepoint) {
	if tx.IsReadOnly {
		return
	}
	for i := len(tx.rwOrder) - 1; i >= sp.rwLen; i-- {
		loc := tx.rwOrder[i]
		entry, ok := tx.rwSet[loc]
		if !ok {
			continue // already unwound by a later duplicate touch of the same slot
		}
		m.unwindToSavepoint(tx, loc, entry)
		delete(tx.rwSet, loc)
	}
	tx.rwOrder = tx.rwOrder[:sp.rwLen]
}

// unwindToSavepoint reverses a single rw-set entry without ending tx,
// mirroring AbortTransaction's per-kind cases.
func (m *TimestampOrderingTransactionManager) unwindToSavepoint(tx *Transaction, loc ItemPointer, entry rwEntry) {
	hdr, off, err := m.header(loc)
	if err != nil {
		panic("storage: rw-set entry references an unknown tilegroup during savepoint rollback")
	}

	switch entry.kind {
	case RWReadOwn:
		if !YieldOwnership(hdr, off, tx.ID) {
			panic("storage: failed to release READ_OWN ownership during savepoint rollback")
		}

	case RWUpdate, RWDelete:
		newLoc := hdr.GetPrevItemPointer(off)
		newHdr, newOff, err := m.header(newLoc)
		if err != nil {
			panic("storage: savepoint rollback of UPDATE/DELETE missing linked new version")
		}
		newHdr.SetBeginCommitId(newOff, MaxCid)
		newHdr.SetEndCommitId(newOff, MaxCid)

		oldPrev := newHdr.GetPrevItemPointer(newOff)
		if oldPrev.IsNull() {
			arrayID, cellIdx := hdr.GetIndirection(off)
			ia, err := m.cat.GetIndirectionArray(arrayID)
			if err != nil {
				panic("storage: savepoint rollback unlink of unknown indirection array")
			}
			if !ia.CAS(cellIdx, newLoc, loc) {
				panic("storage: savepoint rollback indirection CAS failed — concurrent mutation under exclusive ownership")
			}
		} else {
			prevHdr, prevOff, err := m.header(oldPrev)
			if err != nil {
				panic("storage: savepoint rollback unlink dangling prev pointer")
			}
			prevHdr.SetNextItemPointer(prevOff, loc)
		}
		hdr.SetPrevItemPointer(off, oldPrev)
		newHdr.SetTransactionId(newOff, InvalidTxnID)
		// loc itself stays owned by tx — unlike AbortTransaction, the
		// transaction keeps running and may still touch this slot again.
		tx.addToGCSet(newLoc, false)

	case RWInsert, RWInsDel:
		hdr.SetBeginCommitId(off, MaxCid)
		hdr.SetEndCommitId(off, MaxCid)
		hdr.SetTransactionId(off, InvalidTxnID)
		tx.addToGCSet(loc, true)
	}
}
