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

// Ownership predicates, §4.C. These are the only place the txn manager
// decides whether it may mutate a slot's chain links.

// IsOwner reports whether tx already owns this slot.
func IsOwner(hdr *TileGroupHeader, off uint32, tx TxnID) bool {
	return hdr.GetTransactionId(off) == tx
}

// IsOwnable reports whether the slot is the latest version and unlocked:
// no current owner, and not superseded (end_cid still MaxCid).
func IsOwnable(hdr *TileGroupHeader, off uint32) bool {
	return hdr.GetTransactionId(off) == InitialTxnID && hdr.GetEndCommitId(off) == MaxCid
}

// AcquireOwnership attempts the CAS that grants tx exclusive write access
// to the slot. Invariant I4 (one writer) is enforced entirely by this CAS.
func AcquireOwnership(hdr *TileGroupHeader, off uint32, tx TxnID) bool {
	return hdr.CasTransactionId(off, InitialTxnID, tx)
}

// YieldOwnership releases a READ_OWN acquisition back to unowned.
func YieldOwnership(hdr *TileGroupHeader, off uint32, tx TxnID) bool {
	return hdr.CasTransactionId(off, tx, InitialTxnID)
}
