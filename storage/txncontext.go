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

// RWType classifies how a transaction touched a slot, recorded in the
// rw-set and consumed at commit/abort time (§3, §4.F).
type RWType uint8

const (
	RWRead RWType = iota
	RWReadOwn
	RWUpdate
	RWDelete
	RWInsert
	RWInsDel
)

func (t RWType) String() string {
	switch t {
	case RWRead:
		return "READ"
	case RWReadOwn:
		return "READ_OWN"
	case RWUpdate:
		return "UPDATE"
	case RWDelete:
		return "DELETE"
	case RWInsert:
		return "INSERT"
	case RWInsDel:
		return "INS_DEL"
	default:
		return "UNKNOWN"
	}
}

// TxnResult is the terminal status of a transaction.
type TxnResult uint8

const (
	ResultUnknown TxnResult = iota
	ResultSuccess
	ResultFailure
	ResultAborted
)

// rwEntry is one rw-set record. UPDATE/DELETE entries are keyed at the old
// version; commit/abort reach the linked new version through the old
// version's prev pointer, so no caller sets paired.
type rwEntry struct {
	kind  RWType
	paired ItemPointer // always NullItemPointer; see above
}

// Transaction is the per-txn context of §3: identity, read/write set, GC
// set and terminal result. There is no thread-local "current transaction" —
// every txn-manager call takes one explicitly (Design Notes §9).
type Transaction struct {
	ID         TxnID
	BeginCid   Cid
	IsReadOnly bool
	Result     TxnResult

	rwSet map[ItemPointer]rwEntry
	gcSet map[ItemPointer]bool // value = delete_from_index

	// rwOrder remembers the order slots were first touched in, so a
	// Savepoint can capture "how far" the rw-set had grown and
	// RollbackToSavepoint can unwind exactly the entries added after that
	// point, newest first — the rw-set map itself has no ordering.
	rwOrder []ItemPointer
}

func newTransaction(id TxnID, begin Cid, readOnly bool) *Transaction {
	tx := &Transaction{ID: id, BeginCid: begin, IsReadOnly: readOnly}
	if !readOnly {
		tx.rwSet = make(map[ItemPointer]rwEntry)
		tx.gcSet = make(map[ItemPointer]bool)
	}
	return tx
}

func (tx *Transaction) record(loc ItemPointer, kind RWType, paired ItemPointer) {
	if _, exists := tx.rwSet[loc]; !exists {
		tx.rwOrder = append(tx.rwOrder, loc)
	}
	tx.rwSet[loc] = rwEntry{kind: kind, paired: paired}
}

func (tx *Transaction) addToGCSet(loc ItemPointer, deleteFromIndex bool) {
	tx.gcSet[loc] = deleteFromIndex
}

// GCSet exposes the accumulated (slot -> delete_from_index) set for
// inspection once a transaction has ended, consumed by an external
// Recycler (§4.D).
func (tx *Transaction) GCSet() map[ItemPointer]bool {
	return tx.gcSet
}

// RWSetLen reports the number of distinct slots touched, mainly useful for
// tests asserting R3 (an untouched txn has an empty rw-set).
func (tx *Transaction) RWSetLen() int {
	return len(tx.rwSet)
}
